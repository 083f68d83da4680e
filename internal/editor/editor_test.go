package editor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/studio16/internal/access"
	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/storage"
	"github.com/diagnosis/studio16/pkg/config"
	"github.com/diagnosis/studio16/pkg/events"
)

var start = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type staticCatalog []domain.Artwork

func (c staticCatalog) Artworks() []domain.Artwork { return c }

var sample = staticCatalog{
	{ID: "studio-photo-session", Title: "Studio Photo Session", Year: 2024, Image: "/images/studio.jpg", ForSale: true},
	{ID: "journey-to-nibru", Title: "Journey to Nibru", Year: 2023, Series: "Mesopotamia", ForSale: true},
	{ID: "damus-vision", Title: "Damu's Vision", Year: 2024, ForSale: false},
}

type harness struct {
	clk    *clockwork.FakeClock
	store  *storage.Memory
	dev    *storage.Device
	gate   *access.Gate
	events *events.Recorder
	ed     *Editor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := clockwork.NewFakeClockAt(start)
	store := storage.NewMemory()
	gate := access.NewGate(clk, time.Minute)
	rec := &events.Recorder{}
	ed := New(sample, gate, clk, rec, config.EditorConfig{
		SaveDelay:     1500 * time.Millisecond,
		SavedResetIn:  2 * time.Second,
		ErrorResetIn:  3 * time.Second,
		ActivityLimit: 100,
	})
	t.Cleanup(ed.Close)
	return &harness{clk: clk, store: store, dev: storage.ForDevice(store, "device-1"), gate: gate, events: rec, ed: ed}
}

// settled waits for a delayed save or status reset, which the fake clock runs on its own goroutine.
func (h *harness) settled(t *testing.T, dev *storage.Device, want domain.SaveStatus) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ed.Status(dev) == want }, time.Second, time.Millisecond)
}

// login writes a session record directly, which is all the gate looks at.
func (h *harness) login(t *testing.T) {
	t.Helper()
	require.NoError(t, h.dev.SetJSON(context.Background(), storage.KeySession, domain.NewSession(h.clk.Now(), 30*time.Minute)))
}

func TestToggleVisibility_ExpiredSessionIsRefused(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	h.clk.Advance(30*time.Minute + time.Second)
	_, err := h.ed.ToggleVisibility(ctx, h.dev, "studio-photo-session")
	require.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Equal(t, domain.GateDenied, h.gate.State("device-1"))

	list, err := h.ed.Artworks(ctx, h.dev)
	require.NoError(t, err)
	assert.True(t, list[0].ForSale, "refused toggle leaves the catalog alone")
	assert.Equal(t, domain.SaveIdle, h.ed.Status(h.dev))
	assert.Empty(t, h.events.Events())
}

func TestMutationsWithoutSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.ed.BeginEdit(ctx, h.dev, "journey-to-nibru")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.ErrorIs(t, h.ed.SaveAll(ctx, h.dev), domain.ErrAccessDenied)
	_, err = h.ed.UploadImage(ctx, h.dev, "journey-to-nibru", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestToggleVisibility_SavesAfterDelay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	art, err := h.ed.ToggleVisibility(ctx, h.dev, "studio-photo-session")
	require.NoError(t, err)
	assert.False(t, art.ForSale)
	assert.Equal(t, domain.SaveSaving, h.ed.Status(h.dev))

	_, saved, err := h.dev.Get(ctx, storage.KeyArtworks)
	require.NoError(t, err)
	assert.False(t, saved, "nothing written before the delay")

	h.clk.Advance(1500 * time.Millisecond)
	h.settled(t, h.dev, domain.SaveSaved)

	var stored []domain.Artwork
	ok, err := h.dev.GetJSON(ctx, storage.KeyArtworks, &stored)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, stored[0].ForSale)

	h.clk.Advance(2 * time.Second)
	h.settled(t, h.dev, domain.SaveIdle)

	log, err := h.ed.ActivityLog(ctx, h.dev)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, domain.ActionToggleVisibility, log[0].Action)
	assert.Equal(t, "hidden", log[0].NewStatus)
	assert.Equal(t, "Studio Photo Session", log[0].ArtworkTitle)
	assert.Equal(t, domain.ActionSaveAllChanges, log[1].Action)
	assert.Equal(t, 3, log[1].ArtworksCount)

	subjects := []string{}
	for _, ev := range h.events.Events() {
		subjects = append(subjects, ev.Subject)
	}
	assert.Equal(t, []string{events.VisibilityToggled, events.CatalogSaved}, subjects)
}

func TestEditFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	_, err := h.ed.BeginEdit(ctx, h.dev, "journey-to-nibru")
	require.NoError(t, err)

	_, err = h.ed.EditField(ctx, h.dev, "journey-to-nibru", domain.FieldTitle, "Journey to Nibru II")
	require.NoError(t, err)
	_, err = h.ed.EditField(ctx, h.dev, "journey-to-nibru", domain.FieldYear, "twenty")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	_, err = h.ed.EditField(ctx, h.dev, "damus-vision", domain.FieldTitle, "x")
	require.ErrorIs(t, err, domain.ErrNoStagedEdit)

	list, err := h.ed.Artworks(ctx, h.dev)
	require.NoError(t, err)
	assert.Equal(t, "Journey to Nibru", list[1].Title, "staged edits stay out of the catalog")

	saved, err := h.ed.SaveEdit(ctx, h.dev)
	require.NoError(t, err)
	assert.Equal(t, "Journey to Nibru II", saved.Title)

	_, staged, err := h.ed.Staged(ctx, h.dev)
	require.NoError(t, err)
	assert.False(t, staged)

	h.clk.Advance(1500 * time.Millisecond)
	h.settled(t, h.dev, domain.SaveSaved)
	var stored []domain.Artwork
	_, err = h.dev.GetJSON(ctx, storage.KeyArtworks, &stored)
	require.NoError(t, err)
	assert.Equal(t, "Journey to Nibru II", stored[1].Title)

	other := storage.ForDevice(h.store, "device-2")
	otherList, err := h.ed.Artworks(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "Journey to Nibru", otherList[1].Title, "edits are visible only on the editing device")

	log, err := h.ed.ActivityLog(ctx, h.dev)
	require.NoError(t, err)
	require.NotEmpty(t, log)
	assert.Equal(t, domain.ActionEditArtwork, log[0].Action)
	assert.Equal(t, "journey-to-nibru", log[0].ArtworkID)
}

func TestCancelEdit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	_, err := h.ed.BeginEdit(ctx, h.dev, "damus-vision")
	require.NoError(t, err)
	require.NoError(t, h.ed.CancelEdit(ctx, h.dev))

	_, err = h.ed.SaveEdit(ctx, h.dev)
	assert.ErrorIs(t, err, domain.ErrNoStagedEdit)
}

func TestUploadImage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	_, err := h.ed.BeginEdit(ctx, h.dev, "studio-photo-session")
	require.NoError(t, err)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	uri, err := h.ed.UploadImage(ctx, h.dev, "studio-photo-session", "", bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgowMDAw", uri)

	staged, ok, err := h.ed.Staged(ctx, h.dev)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uri, staged.Image)

	art, err := h.ed.Artwork(ctx, h.dev, "studio-photo-session")
	require.NoError(t, err)
	assert.Equal(t, uri, art.Image)

	_, err = h.ed.UploadImage(ctx, h.dev, "studio-photo-session", "text/plain", strings.NewReader("hello"))
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = h.ed.UploadImage(ctx, h.dev, "missing", "image/png", bytes.NewReader(png))
	assert.ErrorIs(t, err, domain.ErrArtworkNotFound)
}

type failingSets struct{ *storage.Memory }

func (f failingSets) Set(ctx context.Context, device, key, value string) error {
	if key == storage.KeyArtworks {
		return storage.ErrUnavailable
	}
	return f.Memory.Set(ctx, device, key, value)
}

func TestSaveAll_ErrorStatusClearsAfterDelay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	dev := storage.ForDevice(failingSets{storage.NewMemory()}, "device-1")
	require.NoError(t, dev.SetJSON(ctx, storage.KeySession, domain.NewSession(start, 30*time.Minute)))

	require.NoError(t, h.ed.SaveAll(ctx, dev))
	h.clk.Advance(1500 * time.Millisecond)
	h.settled(t, dev, domain.SaveError)

	h.clk.Advance(2 * time.Second)
	assert.Equal(t, domain.SaveError, h.ed.Status(dev))
	h.clk.Advance(time.Second)
	h.settled(t, dev, domain.SaveIdle)
}

func TestActivityLogIsBounded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	for i := 0; i < 120; i++ {
		_, err := h.ed.ToggleVisibility(ctx, h.dev, "damus-vision")
		require.NoError(t, err)
	}
	h.clk.Advance(1500 * time.Millisecond)
	h.settled(t, h.dev, domain.SaveSaved)

	log, err := h.ed.ActivityLog(ctx, h.dev)
	require.NoError(t, err)
	assert.Len(t, log, 100)
	assert.Equal(t, domain.ActionSaveAllChanges, log[99].Action)
}

func TestCloseStopsPendingSave(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	require.NoError(t, h.ed.SaveAll(ctx, h.dev))
	h.ed.Close()
	h.clk.Advance(time.Minute)

	_, ok, err := h.dev.Get(ctx, storage.KeyArtworks)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArtworks_StorageClearRestoresBuiltInCatalog(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	_, err := h.ed.ToggleVisibility(ctx, h.dev, "studio-photo-session")
	require.NoError(t, err)
	h.clk.Advance(1500 * time.Millisecond)
	h.settled(t, h.dev, domain.SaveSaved)

	list, err := h.ed.Artworks(ctx, h.dev)
	require.NoError(t, err)
	assert.False(t, list[0].ForSale)

	require.NoError(t, h.dev.Delete(ctx, storage.KeyArtworks))

	list, err = h.ed.Artworks(ctx, h.dev)
	require.NoError(t, err)
	assert.Equal(t, []domain.Artwork(sample), list)

	working, err := h.ed.Working(ctx, h.dev)
	require.NoError(t, err)
	assert.Equal(t, []domain.Artwork(sample), working, "editor reloads once the saved copy is gone")
	assert.Equal(t, domain.SaveIdle, h.ed.Status(h.dev))
}

func TestArtworks_OverrideWrittenElsewhereIsPickedUp(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	_, err := h.ed.Working(ctx, h.dev)
	require.NoError(t, err)

	only := []domain.Artwork{{ID: "damus-vision", Title: "Damu's Vision", Year: 2024}}
	require.NoError(t, h.dev.SetJSON(ctx, storage.KeyArtworks, only))

	working, err := h.ed.Working(ctx, h.dev)
	require.NoError(t, err)
	assert.Equal(t, only, working)
}

func TestArtworks_UnsavedUploadIsNotPublic(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	uri, err := h.ed.UploadImage(ctx, h.dev, "studio-photo-session", "image/png", bytes.NewReader(png))
	require.NoError(t, err)

	working, err := h.ed.Working(ctx, h.dev)
	require.NoError(t, err)
	assert.Equal(t, uri, working[0].Image)

	public, err := h.ed.Artworks(ctx, h.dev)
	require.NoError(t, err)
	assert.Equal(t, "/images/studio.jpg", public[0].Image)

	require.NoError(t, h.gate.Logout(ctx, h.dev))

	public, err = h.ed.Artworks(ctx, h.dev)
	require.NoError(t, err)
	assert.Equal(t, "/images/studio.jpg", public[0].Image)
	working, err = h.ed.Working(ctx, h.dev)
	require.NoError(t, err)
	assert.Equal(t, "/images/studio.jpg", working[0].Image, "logout discards unsaved work")
}

func TestLogoutCancelsPendingSave(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	_, err := h.ed.ToggleVisibility(ctx, h.dev, "studio-photo-session")
	require.NoError(t, err)
	require.NoError(t, h.gate.Logout(ctx, h.dev))
	assert.Equal(t, domain.SaveIdle, h.ed.Status(h.dev))

	h.clk.Advance(time.Minute)
	require.Never(t, func() bool {
		_, ok, _ := h.dev.Get(ctx, storage.KeyArtworks)
		return ok
	}, 50*time.Millisecond, 5*time.Millisecond)
}
