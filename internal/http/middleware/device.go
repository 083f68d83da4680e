// Package middleware resolves the device behind each request and guards the admin routes.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/diagnosis/studio16/internal/access"
	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/http/response"
	"github.com/diagnosis/studio16/internal/platform/auth"
	"github.com/diagnosis/studio16/internal/storage"
	"github.com/diagnosis/studio16/pkg/config"
	"github.com/diagnosis/studio16/pkg/logger"
)

// DeviceCookie carries the signed device token.
const DeviceCookie = "studio16_device"

type ctxKey string

const ctxDevice ctxKey = "device"

type Devices struct {
	store storage.Store
	cfg   config.DeviceConfig
	clock clockwork.Clock
}

func NewDevices(store storage.Store, cfg config.DeviceConfig, clk clockwork.Clock) *Devices {
	return &Devices{store: store, cfg: cfg, clock: clk}
}

// Middleware binds the request to its device storage. A missing or invalid cookie starts a
// new device, the same way a fresh browser starts with empty localStorage.
func (d *Devices) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(DeviceCookie); err == nil {
			if claims, err := auth.Parse(c.Value, d.cfg.TokenSecret, d.clock.Now()); err == nil {
				id = claims.Device
			}
		}
		if id == "" {
			id = uuid.NewString()
			tok, err := auth.NewDeviceToken(id, d.cfg.TokenSecret, d.clock.Now(), d.cfg.TokenTTL)
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to sign device token", "error", err)
				response.InternalError(w, "Failed to start session")
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceCookie,
				Value:    tok,
				Path:     "/",
				MaxAge:   int(d.cfg.TokenTTL.Seconds()),
				HttpOnly: true,
				Secure:   d.cfg.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), ctxDevice, storage.ForDevice(d.store, id))
		ctx = context.WithValue(ctx, logger.DeviceIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Device returns the device bound by Devices.Middleware.
func Device(r *http.Request) *storage.Device {
	if v := r.Context().Value(ctxDevice); v != nil {
		if d, ok := v.(*storage.Device); ok {
			return d
		}
	}
	return nil
}

// WithDevice binds dev to ctx. Used by tests that skip the cookie.
func WithDevice(ctx context.Context, dev *storage.Device) context.Context {
	return context.WithValue(ctx, ctxDevice, dev)
}

// RequireAdmin lets the request through only while the device's session gate is granted.
func RequireAdmin(gate *access.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, err := gate.Check(r.Context(), Device(r))
			if err != nil {
				response.FromError(r.Context(), w, err)
				return
			}
			if state != domain.GateGranted {
				response.Forbidden(w, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
