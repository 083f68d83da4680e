package access

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/diagnosis/studio16/internal/domain"
	"github.com/diagnosis/studio16/internal/storage"
	"github.com/diagnosis/studio16/pkg/logger"
)

// TransitionFunc observes gate state changes for a device.
type TransitionFunc func(device string, from, to domain.GateState)

// Gate guards the admin editor. Its only input is the session record on the device.
type Gate struct {
	clock         clockwork.Clock
	refreshWindow time.Duration
	locks         *storage.Locks

	mu        sync.Mutex
	states    map[string]domain.GateState
	observers []TransitionFunc
}

func NewGate(clk clockwork.Clock, refreshWindow time.Duration) *Gate {
	return &Gate{
		clock:         clk,
		refreshWindow: refreshWindow,
		locks:         storage.NewLocks(),
		states:        make(map[string]domain.GateState),
	}
}

func (g *Gate) OnTransition(fn TransitionFunc) {
	g.mu.Lock()
	g.observers = append(g.observers, fn)
	g.mu.Unlock()
}

// State is the last state the gate reached for the device. Devices never checked are Unknown.
func (g *Gate) State(device string) domain.GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.states[device]; ok {
		return s
	}
	return domain.GateUnknown
}

func (g *Gate) transition(device string, to domain.GateState) {
	g.mu.Lock()
	from, ok := g.states[device]
	if !ok {
		from = domain.GateUnknown
	}
	g.states[device] = to
	observers := append([]TransitionFunc(nil), g.observers...)
	g.mu.Unlock()

	if from == to {
		return
	}
	for _, fn := range observers {
		fn(device, from, to)
	}
}

// Check reads the session record and settles on Granted or Denied. An expired record is
// removed together with the last-login stamp and any pending code. A live record has its
// lastActivity bumped when the previous activity is within the refresh window.
func (g *Gate) Check(ctx context.Context, dev *storage.Device) (domain.GateState, error) {
	unlock := g.locks.Lock(dev.ID())
	defer unlock()

	g.transition(dev.ID(), domain.GateChecking)
	granted, err := g.check(ctx, dev, false)
	state := domain.GateDenied
	if granted {
		state = domain.GateGranted
	}
	g.transition(dev.ID(), state)
	return state, err
}

func (g *Gate) check(ctx context.Context, dev *storage.Device, touch bool) (bool, error) {
	var session domain.Session
	ok, err := dev.GetJSON(ctx, storage.KeySession, &session)
	if err != nil {
		var serr *domain.StorageError
		if errors.As(err, &serr) && serr.Op == "decode" {
			logger.WarnContext(ctx, "unreadable admin session record", "error", err)
			return false, nil
		}
		return false, err
	}
	if !ok {
		return false, nil
	}

	now := g.clock.Now()
	if session.IsExpired(now) {
		logger.InfoContext(ctx, "admin session expired", "expired_at", session.ExpiresAt)
		return false, revoke(ctx, dev)
	}

	if !session.Granted {
		return false, nil
	}
	if touch || now.Sub(session.LastActivity) < g.refreshWindow {
		session.LastActivity = now
		if err := dev.SetJSON(ctx, storage.KeySession, session); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Touch records admin activity on a live session.
func (g *Gate) Touch(ctx context.Context, dev *storage.Device) error {
	unlock := g.locks.Lock(dev.ID())
	defer unlock()

	granted, err := g.check(ctx, dev, true)
	if !granted {
		g.transition(dev.ID(), domain.GateDenied)
	}
	return err
}

// Logout removes the session, the last-login stamp and any pending code.
func (g *Gate) Logout(ctx context.Context, dev *storage.Device) error {
	unlock := g.locks.Lock(dev.ID())
	defer unlock()

	err := revoke(ctx, dev)
	g.transition(dev.ID(), domain.GateDenied)
	if err == nil {
		logger.InfoContext(ctx, "admin logged out")
	}
	return err
}

// Watch re-checks the session every interval while ctx is alive. The channel receives
// Denied once, then closes; it also closes when ctx ends.
func (g *Gate) Watch(ctx context.Context, dev *storage.Device, interval time.Duration) <-chan domain.GateState {
	out := make(chan domain.GateState, 1)
	ticker := g.clock.NewTicker(interval)

	go func() {
		defer close(out)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				state, err := g.Check(ctx, dev)
				if err != nil {
					logger.WarnContext(ctx, "liveness check failed", "error", err)
				}
				if state == domain.GateDenied {
					out <- state
					return
				}
			}
		}
	}()
	return out
}

func revoke(ctx context.Context, dev *storage.Device) error {
	return dev.Delete(ctx,
		storage.KeySession,
		storage.KeyLastLogin,
		storage.KeyPendingCode,
		storage.KeyPendingCodeExpiry,
	)
}
