package access

import (
	"context"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/storage"
	"github.com/diagnosis/studio16/pkg/logger"
)

type Verifier struct {
	clock      clockwork.Clock
	codeLength int
	codeTTL    time.Duration
	sessionTTL time.Duration
	passwords  *PasswordChecker
}

func NewVerifier(clk clockwork.Clock, codeLength int, codeTTL, sessionTTL time.Duration, passwords *PasswordChecker) *Verifier {
	return &Verifier{
		clock:      clk,
		codeLength: codeLength,
		codeTTL:    codeTTL,
		sessionTTL: sessionTTL,
		passwords:  passwords,
	}
}

// Verify checks the entered code and password and, when both match, consumes the code and
// writes a session record. Every rejection returns false; callers show one generic message.
// An expired code is discarded and reported as a domain.ExpiryError alongside false.
func (v *Verifier) Verify(ctx context.Context, dev *storage.Device, code, password string) (bool, error) {
	if len(code) != v.codeLength {
		return false, nil
	}

	pending, ok, err := loadPending(ctx, dev, v.codeTTL)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	now := v.clock.Now()
	if pending.IsExpired(now) {
		if err := clearPending(ctx, dev); err != nil {
			return false, err
		}
		logger.InfoContext(ctx, "admin access code expired", "expired_at", pending.ExpiresAt)
		return false, &domain.ExpiryError{What: "access code"}
	}

	if !pending.Matches(code) {
		return false, nil
	}

	res, err := v.passwords.Check(ctx, password)
	if err != nil {
		return false, err
	}
	if !res.OK {
		logger.InfoContext(ctx, "admin password rejected")
		return false, nil
	}

	// The password lookup may have taken a while; the session starts when it resolves.
	now = v.clock.Now()
	session := domain.NewSession(now, v.sessionTTL)
	if err := dev.SetJSON(ctx, storage.KeySession, session); err != nil {
		return false, err
	}
	if err := dev.Set(ctx, storage.KeyLastLogin, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		return false, err
	}
	if err := clearPending(ctx, dev); err != nil {
		return false, err
	}

	logger.InfoContext(ctx, "admin access granted", "session_expires_at", session.ExpiresAt)
	return true, nil
}
