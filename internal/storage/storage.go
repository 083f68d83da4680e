// Package storage is the server-side equivalent of the browser's localStorage: a string
// key-value namespace per device. Devices never see each other's keys.
package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/diagnosis/studio16/internal/domain"
)

// Keys written by the site. The names match what the browser build used.
const (
	KeyPendingCode       = "admin_otp"
	KeyPendingCodeExpiry = "admin_otp_expiry"
	KeySession           = "studio_admin_access"
	KeyLastLogin         = "admin_last_login"
	KeyArtworks          = "studioArtworks"
	KeyActivityLog       = "adminActivityLog"
	KeyStagedEdit        = "admin_staged_edit"
	KeyArtworkMessage    = "artworkChatMessage"
	KeyArtworkContext    = "artworkChatContext"
	KeyStudioMessage     = "studioChatMessage"
)

// ErrUnavailable is returned by drivers that cannot reach their backend.
var ErrUnavailable = errors.New("storage unavailable")

// Store is implemented by the memory, redis and postgres drivers.
type Store interface {
	Get(ctx context.Context, device, key string) (value string, ok bool, err error)
	Set(ctx context.Context, device, key, value string) error
	Delete(ctx context.Context, device string, keys ...string) error
	Keys(ctx context.Context, device string) ([]string, error)
	Close() error
}

// Pinger is implemented by drivers with a remote backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the backend of store, if it has one.
func Ping(ctx context.Context, store Store) error {
	if p, ok := store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Device binds a Store to one device id and wraps driver errors as domain.StorageError.
type Device struct {
	store Store
	id    string
}

func ForDevice(store Store, id string) *Device {
	return &Device{store: store, id: id}
}

func (d *Device) ID() string { return d.id }

func (d *Device) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := d.store.Get(ctx, d.id, key)
	if err != nil {
		return "", false, &domain.StorageError{Op: "get", Key: key, Err: err}
	}
	return v, ok, nil
}

func (d *Device) Set(ctx context.Context, key, value string) error {
	if err := d.store.Set(ctx, d.id, key, value); err != nil {
		return &domain.StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (d *Device) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := d.store.Delete(ctx, d.id, keys...); err != nil {
		return &domain.StorageError{Op: "delete", Key: keys[0], Err: err}
	}
	return nil
}

func (d *Device) Keys(ctx context.Context) ([]string, error) {
	keys, err := d.store.Keys(ctx, d.id)
	if err != nil {
		return nil, &domain.StorageError{Op: "keys", Err: err}
	}
	return keys, nil
}

// GetJSON decodes the value under key into v. ok is false when the key is absent.
func (d *Device) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := d.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, &domain.StorageError{Op: "decode", Key: key, Err: err}
	}
	return true, nil
}

func (d *Device) SetJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return &domain.StorageError{Op: "encode", Key: key, Err: err}
	}
	return d.Set(ctx, key, string(b))
}
