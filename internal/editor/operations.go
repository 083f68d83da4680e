package editor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/storage"
	"github.com/diagnosis/studio16/pkg/events"
	"github.com/diagnosis/studio16/pkg/logger"
)

// MaxImageBytes bounds an image read into a data URI.
const MaxImageBytes = 8 << 20

// BeginEdit stages a copy of the artwork for editing, replacing any earlier staged edit.
func (e *Editor) BeginEdit(ctx context.Context, dev *storage.Device, id string) (domain.Artwork, error) {
	unlock := e.locks.Lock(dev.ID())
	defer unlock()

	if err := e.guard(ctx, dev); err != nil {
		return domain.Artwork{}, err
	}
	ws, err := e.workspace(ctx, dev)
	if err != nil {
		return domain.Artwork{}, err
	}
	i := domain.FindArtwork(ws.artworks, id)
	if i < 0 {
		return domain.Artwork{}, domain.ErrArtworkNotFound
	}
	staged := ws.artworks[i]
	if err := dev.SetJSON(ctx, storage.KeyStagedEdit, staged); err != nil {
		return domain.Artwork{}, err
	}
	return staged, nil
}

// Staged returns the artwork being edited, if any.
func (e *Editor) Staged(ctx context.Context, dev *storage.Device) (domain.Artwork, bool, error) {
	var staged domain.Artwork
	ok, err := dev.GetJSON(ctx, storage.KeyStagedEdit, &staged)
	return staged, ok, err
}

// EditField changes one field of the staged edit. The catalog is untouched until SaveEdit.
func (e *Editor) EditField(ctx context.Context, dev *storage.Device, id string, field domain.ArtworkField, value string) (domain.Artwork, error) {
	unlock := e.locks.Lock(dev.ID())
	defer unlock()

	if err := e.guard(ctx, dev); err != nil {
		return domain.Artwork{}, err
	}
	staged, ok, err := e.Staged(ctx, dev)
	if err != nil {
		return domain.Artwork{}, err
	}
	if !ok || staged.ID != id {
		return domain.Artwork{}, domain.ErrNoStagedEdit
	}
	if err := staged.Set(field, value); err != nil {
		return domain.Artwork{}, err
	}
	if err := dev.SetJSON(ctx, storage.KeyStagedEdit, staged); err != nil {
		return domain.Artwork{}, err
	}
	return staged, nil
}

// SaveEdit merges the staged edit into the working copy, logs it and starts a full save.
func (e *Editor) SaveEdit(ctx context.Context, dev *storage.Device) (domain.Artwork, error) {
	unlock := e.locks.Lock(dev.ID())
	defer unlock()

	staged, ok, err := e.Staged(ctx, dev)
	if err != nil {
		return domain.Artwork{}, err
	}
	if !ok {
		return domain.Artwork{}, domain.ErrNoStagedEdit
	}
	if err := e.guard(ctx, dev); err != nil {
		return domain.Artwork{}, err
	}

	ws, err := e.workspace(ctx, dev)
	if err != nil {
		return domain.Artwork{}, err
	}
	i := domain.FindArtwork(ws.artworks, staged.ID)
	if i < 0 {
		return domain.Artwork{}, domain.ErrArtworkNotFound
	}
	ws.artworks[i] = staged

	entry := domain.ActivityEntry{
		Timestamp:    e.clock.Now(),
		Action:       domain.ActionEditArtwork,
		ArtworkID:    staged.ID,
		ArtworkTitle: staged.Title,
	}
	if err := e.appendActivity(ctx, dev, entry); err != nil {
		return domain.Artwork{}, err
	}
	e.publish(ctx, events.ArtworkEdited, entry, dev.ID())

	if err := dev.Delete(ctx, storage.KeyStagedEdit); err != nil {
		return domain.Artwork{}, err
	}
	e.scheduleSave(ctx, ws)
	return staged, nil
}

// CancelEdit drops the staged edit.
func (e *Editor) CancelEdit(ctx context.Context, dev *storage.Device) error {
	unlock := e.locks.Lock(dev.ID())
	defer unlock()
	return dev.Delete(ctx, storage.KeyStagedEdit)
}

// SaveAll starts a save of the whole working copy. Status becomes saving at once; the write
// happens after the configured delay.
func (e *Editor) SaveAll(ctx context.Context, dev *storage.Device) error {
	unlock := e.locks.Lock(dev.ID())
	defer unlock()

	if err := e.guard(ctx, dev); err != nil {
		return err
	}
	ws, err := e.workspace(ctx, dev)
	if err != nil {
		return err
	}
	e.scheduleSave(ctx, ws)
	return nil
}

// ToggleVisibility flips whether the artwork is shown on the site and starts a full save.
func (e *Editor) ToggleVisibility(ctx context.Context, dev *storage.Device, id string) (domain.Artwork, error) {
	unlock := e.locks.Lock(dev.ID())
	defer unlock()

	if err := e.guard(ctx, dev); err != nil {
		return domain.Artwork{}, err
	}
	ws, err := e.workspace(ctx, dev)
	if err != nil {
		return domain.Artwork{}, err
	}
	i := domain.FindArtwork(ws.artworks, id)
	if i < 0 {
		return domain.Artwork{}, domain.ErrArtworkNotFound
	}
	ws.artworks[i].ForSale = !ws.artworks[i].ForSale
	art := ws.artworks[i]

	status := "hidden"
	if art.ForSale {
		status = "visible"
	}
	entry := domain.ActivityEntry{
		Timestamp:    e.clock.Now(),
		Action:       domain.ActionToggleVisibility,
		ArtworkID:    art.ID,
		ArtworkTitle: art.Title,
		NewStatus:    status,
	}
	if err := e.appendActivity(ctx, dev, entry); err != nil {
		return domain.Artwork{}, err
	}
	e.publish(ctx, events.VisibilityToggled, entry, dev.ID())

	e.scheduleSave(ctx, ws)
	return art, nil
}

// UploadImage reads an image into a data URI and puts it in place of the artwork's image,
// on the working copy and on the staged edit when it is the same artwork. Nothing leaves the
// device; the change is kept by the next save.
func (e *Editor) UploadImage(ctx context.Context, dev *storage.Device, id, contentType string, r io.Reader) (string, error) {
	unlock := e.locks.Lock(dev.ID())
	defer unlock()

	if err := e.guard(ctx, dev); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", &domain.ValidationError{Field: "image", Message: "file is empty"}
	}
	if len(data) > MaxImageBytes {
		return "", &domain.ValidationError{Field: "image", Message: "file is too large"}
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", &domain.ValidationError{Field: "image", Message: "file is not an image"}
	}
	uri := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)

	ws, err := e.workspace(ctx, dev)
	if err != nil {
		return "", err
	}
	i := domain.FindArtwork(ws.artworks, id)
	if i < 0 {
		return "", domain.ErrArtworkNotFound
	}
	ws.artworks[i].Image = uri

	staged, ok, err := e.Staged(ctx, dev)
	if err != nil {
		return "", err
	}
	if ok && staged.ID == id {
		staged.Image = uri
		if err := dev.SetJSON(ctx, storage.KeyStagedEdit, staged); err != nil {
			return "", err
		}
	}

	e.publish(ctx, events.ImageReplaced, domain.ActivityEntry{
		Timestamp:    e.clock.Now(),
		Action:       domain.ActionReplaceImage,
		ArtworkID:    id,
		ArtworkTitle: ws.artworks[i].Title,
	}, dev.ID())
	return uri, nil
}

// ActivityLog returns the device's audit log, oldest first.
func (e *Editor) ActivityLog(ctx context.Context, dev *storage.Device) ([]domain.ActivityEntry, error) {
	var log []domain.ActivityEntry
	if _, err := dev.GetJSON(ctx, storage.KeyActivityLog, &log); err != nil {
		return nil, err
	}
	return log, nil
}

func (e *Editor) appendActivity(ctx context.Context, dev *storage.Device, entry domain.ActivityEntry) error {
	log, err := e.ActivityLog(ctx, dev)
	if err != nil {
		logger.WarnContext(ctx, "resetting unreadable activity log", "error", err)
		log = nil
	}
	log = append(log, entry)
	if limit := e.cfg.ActivityLimit; limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	return dev.SetJSON(ctx, storage.KeyActivityLog, log)
}

// scheduleSave moves the workspace to saving and arms the delayed write. A save already
// pending is replaced so the write always carries the latest working copy.
// Caller holds the device lock.
func (e *Editor) scheduleSave(ctx context.Context, ws *workspace) {
	stop(ws.save)
	stop(ws.reset)
	ws.status = domain.SaveSaving

	bg := detached(ctx)
	ws.save = e.clock.AfterFunc(e.cfg.SaveDelay, func() { e.flush(bg, ws) })
}

func (e *Editor) flush(ctx context.Context, ws *workspace) {
	unlock := e.locks.Lock(ws.dev.ID())
	defer unlock()
	if e.isClosed() || ws.gone.Load() {
		return
	}

	raw, err := json.Marshal(ws.artworks)
	if err == nil {
		err = ws.dev.Set(ctx, storage.KeyArtworks, string(raw))
	}
	if err == nil {
		ws.saved = string(raw)
		entry := domain.ActivityEntry{
			Timestamp:     e.clock.Now(),
			Action:        domain.ActionSaveAllChanges,
			ArtworksCount: len(ws.artworks),
		}
		if err = e.appendActivity(ctx, ws.dev, entry); err == nil {
			e.publish(ctx, events.CatalogSaved, entry, ws.dev.ID())
		}
	}

	next, after := domain.SaveSaved, e.cfg.SavedResetIn
	if err != nil {
		logger.ErrorContext(ctx, "failed to save artworks", "error", err)
		next, after = domain.SaveError, e.cfg.ErrorResetIn
	}
	ws.status = next
	ws.reset = e.clock.AfterFunc(after, func() { e.settle(ws, next) })
}

// settle returns the status to idle unless something newer replaced it.
func (e *Editor) settle(ws *workspace, from domain.SaveStatus) {
	unlock := e.locks.Lock(ws.dev.ID())
	defer unlock()
	if !ws.gone.Load() && ws.status == from {
		ws.status = domain.SaveIdle
	}
}
