// Package access implements the admin gate: one-time code issuance, verification against the
// configured password, and the session record that guards the editor.
//
// Everything lives in the device's own storage and the expected password is public
// configuration. A device can read its pending code or write its own session record and it
// will be honoured. That is the documented behaviour of the site, not an oversight here.
package access

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/storage"
	"github.com/diagnosis/studio16/pkg/logger"
)

// SendFunc transmits the code message. The HTTP layer supplies one that opens a WhatsApp
// hand-off to the operator number on the requesting browser.
type SendFunc func(ctx context.Context, message string) error

type Issuer struct {
	clock  clockwork.Clock
	length int
	ttl    time.Duration

	newCode func(n int) (string, error)
}

func NewIssuer(clk clockwork.Clock, length int, ttl time.Duration) *Issuer {
	return &Issuer{clock: clk, length: length, ttl: ttl, newCode: GenerateCode}
}

// GenerateCode draws n characters uniformly from domain.CodeAlphabet.
func GenerateCode(n int) (string, error) {
	size := big.NewInt(int64(len(domain.CodeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b[i] = domain.CodeAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// CodeMessage is the text sent to the operator. The password is never part of it; the
// asterisks only show where it goes.
func CodeMessage(code string, ttl time.Duration) string {
	return fmt.Sprintf("🔐 STUDIO 1.6 ADMIN ACCESS\n\nCode: %s%s\n\nValid for %d minutes",
		code, domain.MaskedPassword, int(ttl.Minutes()))
}

// SendCode issues a fresh code on the device, replacing any pending one, and transmits it.
// Success only means the message was built and handed off, never that it was delivered.
func (i *Issuer) SendCode(ctx context.Context, dev *storage.Device, send SendFunc) (domain.PendingCode, error) {
	code, err := i.newCode(i.length)
	if err != nil {
		return domain.PendingCode{}, &domain.TransmissionError{Err: err}
	}

	now := i.clock.Now()
	pending := domain.PendingCode{Code: code, IssuedAt: now, ExpiresAt: now.Add(i.ttl)}

	if err := dev.Set(ctx, storage.KeyPendingCode, pending.Code); err != nil {
		return domain.PendingCode{}, &domain.TransmissionError{Err: err}
	}
	expiry := strconv.FormatInt(pending.ExpiresAt.UnixMilli(), 10)
	if err := dev.Set(ctx, storage.KeyPendingCodeExpiry, expiry); err != nil {
		return domain.PendingCode{}, &domain.TransmissionError{Err: err}
	}

	if err := send(ctx, CodeMessage(pending.Code, i.ttl)); err != nil {
		logger.ErrorContext(ctx, "failed to hand off access code", "error", err)
		return domain.PendingCode{}, &domain.TransmissionError{Err: err}
	}

	logger.InfoContext(ctx, "admin access code issued", "expires_at", pending.ExpiresAt)
	return pending, nil
}

// loadPending reads the pending code. ok is false when either key is missing or the expiry
// cannot be parsed, which the browser build also treated as "no code".
func loadPending(ctx context.Context, dev *storage.Device, ttl time.Duration) (domain.PendingCode, bool, error) {
	code, ok, err := dev.Get(ctx, storage.KeyPendingCode)
	if err != nil || !ok || code == "" {
		return domain.PendingCode{}, false, err
	}
	raw, ok, err := dev.Get(ctx, storage.KeyPendingCodeExpiry)
	if err != nil || !ok {
		return domain.PendingCode{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return domain.PendingCode{}, false, nil
	}
	expires := time.UnixMilli(ms)
	return domain.PendingCode{Code: code, IssuedAt: expires.Add(-ttl), ExpiresAt: expires}, true, nil
}

func clearPending(ctx context.Context, dev *storage.Device) error {
	return dev.Delete(ctx, storage.KeyPendingCode, storage.KeyPendingCodeExpiry)
}
