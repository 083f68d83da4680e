package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/studio16/internal/domain"
)

type brokenStore struct{ *Memory }

func (brokenStore) Set(context.Context, string, string, string) error { return ErrUnavailable }

func TestMemory_DevicesAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := ForDevice(m, "device-a")
	b := ForDevice(m, "device-b")

	require.NoError(t, a.Set(ctx, KeyStudioMessage, "hello"))

	v, ok, err := a.Get(ctx, KeyStudioMessage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", v)

	_, ok, err = b.Get(ctx, KeyStudioMessage)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Delete(ctx, KeyStudioMessage, KeyArtworkMessage))
	keys, err := a.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDevice_JSON(t *testing.T) {
	ctx := context.Background()
	d := ForDevice(NewMemory(), "d1")

	in := domain.ArtworkChatContext{Title: "Damu's Vision", Year: 2024, Series: "Human Nature"}
	require.NoError(t, d.SetJSON(ctx, KeyArtworkContext, in))

	var out domain.ArtworkChatContext
	ok, err := d.GetJSON(ctx, KeyArtworkContext, &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)

	ok, err = d.GetJSON(ctx, KeySession, &out)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Set(ctx, KeySession, "{not json"))
	var s domain.Session
	_, err = d.GetJSON(ctx, KeySession, &s)
	var serr *domain.StorageError
	assert.True(t, errors.As(err, &serr))
}

func TestDevice_WrapsDriverErrors(t *testing.T) {
	d := ForDevice(&brokenStore{Memory: NewMemory()}, "d1")

	err := d.Set(context.Background(), KeyArtworks, "[]")
	var serr *domain.StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "set", serr.Op)
	assert.ErrorIs(t, err, ErrUnavailable)
}
