package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

)

// Relay lets a server-side Send drive a browser: the page performs the navigation,
// reports back when it sees itself hidden, and asks for the outcome.
type Relay struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu      sync.Mutex
	tickets map[string]*Ticket
	closed  bool
}

func NewRelay(clk clockwork.Clock, ttl time.Duration) *Relay {
	return &Relay{clock: clk, ttl: ttl, tickets: make(map[string]*Ticket)}
}

// Open registers a ticket that expires after the relay ttl. The ticket context keeps the
// values of parent but not its cancellation, so the race outlives the request that started it.
func (r *Relay) Open(parent context.Context) *Ticket {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	t := &Ticket{
		id:        uuid.NewString(),
		ctx:       ctx,
		cancel:    cancel,
		navigated: make(chan struct{}),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		cancel()
		return t
	}
	r.tickets[t.id] = t
	t.expiry = r.clock.AfterFunc(r.ttl, func() { r.remove(t.id) })
	return t
}

func (r *Relay) Get(id string) (*Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	return t, ok
}

func (r *Relay) remove(id string) {
	r.mu.Lock()
	t, ok := r.tickets[id]
	delete(r.tickets, id)
	r.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// Close cancels every pending ticket so no fallback fires after teardown.
func (r *Relay) Close() {
	r.mu.Lock()
	tickets := r.tickets
	r.tickets = make(map[string]*Ticket)
	r.closed = true
	r.mu.Unlock()

	for _, t := range tickets {
		if t.expiry != nil {
			t.expiry.Stop()
		}
		t.cancel()
	}
}

// Ticket is an Opener for one browser hand-off.
type Ticket struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	expiry clockwork.Timer

	navigated chan struct{}
	navOnce   sync.Once
	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once

	mu      sync.Mutex
	app     string
	web     string
	surface Surface
	err     error
}

func (t *Ticket) ID() string                 { return t.id }
func (t *Ticket) Context() context.Context   { return t.ctx }
func (t *Ticket) Done() <-chan struct{}      { return t.done }
func (t *Ticket) Navigated() <-chan struct{} { return t.navigated }

// Ready is closed once the first surface has been chosen or the send has finished.
func (t *Ticket) Ready() <-chan struct{} { return t.ready }

func (t *Ticket) markReady() { t.readyOnce.Do(func() { close(t.ready) }) }

// Links returns the URIs handed to the ticket so far.
func (t *Ticket) Links() (app, web string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.app, t.web
}

func (t *Ticket) OpenApp(_ context.Context, uri string) (<-chan struct{}, error) {
	t.mu.Lock()
	t.app = uri
	t.mu.Unlock()
	t.markReady()
	return t.navigated, nil
}

func (t *Ticket) OpenWeb(_ context.Context, url string) error {
	t.mu.Lock()
	t.web = url
	t.mu.Unlock()
	t.markReady()
	return nil
}

// MarkNavigated records that the page left for the app.
func (t *Ticket) MarkNavigated() {
	t.navOnce.Do(func() { close(t.navigated) })
}

// Finish stores the Send result and releases waiters.
func (t *Ticket) Finish(surface Surface, err error) {
	t.mu.Lock()
	t.surface, t.err = surface, err
	t.mu.Unlock()
	// done before ready: a waiter woken by ready can tell a finished send from an app launch.
	t.doneOnce.Do(func() { close(t.done) })
	t.markReady()
}

// Outcome returns the surface used and, for a web fallback, the URL the page must open.
func (t *Ticket) Outcome() (Surface, string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.surface == SurfaceWeb {
		return t.surface, t.web, t.err
	}
	return t.surface, "", t.err
}
