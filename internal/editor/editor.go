// Package editor is the admin content editor. Each device edits its own working copy of the
// catalog; saving writes that copy to the device's storage and nowhere else.
package editor

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/diagnosis/studio16/internal/access"
	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/storage"
	"github.com/diagnosis/studio16/pkg/config"
	"github.com/diagnosis/studio16/pkg/events"
	"github.com/diagnosis/studio16/pkg/logger"
)

// Catalog supplies the built-in artworks a device starts from.
type Catalog interface {
	Artworks() []domain.Artwork
}

type Editor struct {
	catalog Catalog
	gate    *access.Gate
	clock   clockwork.Clock
	events  events.Publisher
	cfg     config.EditorConfig
	locks   *storage.Locks

	mu      sync.Mutex
	devices map[string]*workspace
	closed  bool
}

// workspace is the in-memory state of one device's editor. Guarded by the device lock.
// saved is the stored override it was built from or last wrote; a different stored value
// means the device storage changed underneath and the workspace is rebuilt.
type workspace struct {
	dev      *storage.Device
	artworks []domain.Artwork
	saved    string
	status   domain.SaveStatus
	save     clockwork.Timer
	reset    clockwork.Timer
	gone     atomic.Bool
}

func New(catalog Catalog, gate *access.Gate, clk clockwork.Clock, pub events.Publisher, cfg config.EditorConfig) *Editor {
	if pub == nil {
		pub = events.Noop{}
	}
	e := &Editor{
		catalog: catalog,
		gate:    gate,
		clock:   clk,
		events:  pub,
		cfg:     cfg,
		locks:   storage.NewLocks(),
		devices: make(map[string]*workspace),
	}
	gate.OnTransition(func(device string, _, to domain.GateState) {
		if to == domain.GateDenied {
			e.drop(device)
		}
	})
	return e
}

// guard re-checks the session before a mutation and records the activity when it is live.
func (e *Editor) guard(ctx context.Context, dev *storage.Device) error {
	state, err := e.gate.Check(ctx, dev)
	if err != nil {
		return err
	}
	if state != domain.GateGranted {
		logger.InfoContext(ctx, "editor action refused, session not live")
		return domain.ErrAccessDenied
	}
	return e.gate.Touch(ctx, dev)
}

// workspace returns the device's working copy, loading it from storage when there is none
// or when the stored override no longer matches what the workspace knows. Caller holds the
// device lock.
func (e *Editor) workspace(ctx context.Context, dev *storage.Device) (*workspace, error) {
	raw, _, err := dev.Get(ctx, storage.KeyArtworks)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	ws, ok := e.devices[dev.ID()]
	e.mu.Unlock()
	if ok && ws.saved == raw {
		return ws, nil
	}
	if ok {
		logger.InfoContext(ctx, "stored artworks changed, reloading editor workspace")
		e.retire(ws)
	}

	ws = &workspace{dev: dev, artworks: e.decode(ctx, raw), saved: raw, status: domain.SaveIdle}
	e.mu.Lock()
	e.devices[dev.ID()] = ws
	e.mu.Unlock()
	return ws, nil
}

// decode parses a stored override, falling back to the built-in catalog when it is missing
// or unreadable.
func (e *Editor) decode(ctx context.Context, raw string) []domain.Artwork {
	if raw != "" {
		var list []domain.Artwork
		err := json.Unmarshal([]byte(raw), &list)
		if err == nil {
			return list
		}
		logger.WarnContext(ctx, "ignoring unreadable artwork override", "error", err)
	}
	return e.catalog.Artworks()
}

// drop forgets the device's workspace. It runs from gate transitions, which may fire while
// the device lock is held, so it only marks the workspace; pending timers see the mark and
// do nothing.
func (e *Editor) drop(device string) {
	e.mu.Lock()
	ws, ok := e.devices[device]
	delete(e.devices, device)
	e.mu.Unlock()
	if ok {
		ws.gone.Store(true)
	}
}

// retire stops a replaced workspace. Caller holds the device lock.
func (e *Editor) retire(ws *workspace) {
	ws.gone.Store(true)
	stop(ws.save)
	stop(ws.reset)
}

// Artworks is the catalog the device publishes: its saved override, or the built-in catalog
// when nothing is saved. Unsaved work in the editor never shows here.
func (e *Editor) Artworks(ctx context.Context, dev *storage.Device) ([]domain.Artwork, error) {
	unlock := e.locks.Lock(dev.ID())
	defer unlock()

	raw, _, err := dev.Get(ctx, storage.KeyArtworks)
	if err != nil {
		return nil, err
	}
	return e.decode(ctx, raw), nil
}

// Working is the editor's copy, including changes not saved yet.
func (e *Editor) Working(ctx context.Context, dev *storage.Device) ([]domain.Artwork, error) {
	unlock := e.locks.Lock(dev.ID())
	defer unlock()

	ws, err := e.workspace(ctx, dev)
	if err != nil {
		return nil, err
	}
	return append([]domain.Artwork(nil), ws.artworks...), nil
}

// Artwork looks one artwork up in the working copy.
func (e *Editor) Artwork(ctx context.Context, dev *storage.Device, id string) (domain.Artwork, error) {
	list, err := e.Working(ctx, dev)
	if err != nil {
		return domain.Artwork{}, err
	}
	i := domain.FindArtwork(list, id)
	if i < 0 {
		return domain.Artwork{}, domain.ErrArtworkNotFound
	}
	return list[i], nil
}

func (e *Editor) Status(dev *storage.Device) domain.SaveStatus {
	unlock := e.locks.Lock(dev.ID())
	defer unlock()

	e.mu.Lock()
	ws, ok := e.devices[dev.ID()]
	e.mu.Unlock()
	if !ok {
		return domain.SaveIdle
	}
	return ws.status
}

// ResetStatus dismisses the save status banner.
func (e *Editor) ResetStatus(dev *storage.Device) {
	unlock := e.locks.Lock(dev.ID())
	defer unlock()

	e.mu.Lock()
	ws, ok := e.devices[dev.ID()]
	e.mu.Unlock()
	if !ok || ws.status == domain.SaveSaving {
		return
	}
	stop(ws.reset)
	ws.status = domain.SaveIdle
}

// Close stops every pending save and status timer. Nothing fires after it returns.
func (e *Editor) Close() {
	e.mu.Lock()
	e.closed = true
	devices := e.devices
	e.devices = make(map[string]*workspace)
	e.mu.Unlock()

	for id, ws := range devices {
		unlock := e.locks.Lock(id)
		e.retire(ws)
		unlock()
	}
}

func (e *Editor) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func stop(t clockwork.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (e *Editor) publish(ctx context.Context, subject string, entry domain.ActivityEntry, device string) {
	ev := events.ActivityEvent{
		Device:        device,
		Action:        entry.Action,
		ArtworkID:     entry.ArtworkID,
		ArtworkTitle:  entry.ArtworkTitle,
		NewStatus:     entry.NewStatus,
		ArtworksCount: entry.ArtworksCount,
		At:            entry.Timestamp,
	}
	if err := e.events.Publish(ctx, subject, ev); err != nil {
		logger.WarnContext(ctx, "failed to publish editor event", "subject", subject, "error", err)
	}
}

// detached carries the request's log attributes into timer callbacks without its deadline.
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
