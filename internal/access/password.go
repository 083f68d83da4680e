package access

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/diagnosis/studio16/internal/domain"
)

// PasswordResult mirrors the response shape of the lookup the site's API module returned.
type PasswordResult struct {
	OK      bool   `json:"success"`
	Message string `json:"message"`
}

// PasswordChecker compares against the configured admin password. It is a plain equality
// check behind an artificial delay; the expected value is also served by /api/config.
type PasswordChecker struct {
	expected string
	clock    clockwork.Clock
	latency  time.Duration
}

func NewPasswordChecker(expected string, clk clockwork.Clock, latency time.Duration) *PasswordChecker {
	return &PasswordChecker{expected: expected, clock: clk, latency: latency}
}

func (p *PasswordChecker) Check(ctx context.Context, entered string) (PasswordResult, error) {
	if len(entered) != domain.AdminPasswordLen {
		return PasswordResult{Message: "Admin password must be 5 characters"}, nil
	}

	if p.latency > 0 {
		select {
		case <-p.clock.After(p.latency):
		case <-ctx.Done():
			return PasswordResult{}, ctx.Err()
		}
	}

	if entered == p.expected {
		return PasswordResult{OK: true, Message: "Password verified successfully"}, nil
	}
	return PasswordResult{Message: "Invalid admin password"}, nil
}
