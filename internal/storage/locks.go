package storage

import "sync"

// Locks serializes work per device, standing in for the single-threaded browsing context
// the keys were designed around. Entries are dropped once no caller holds them.
type Locks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{entries: make(map[string]*lockEntry)}
}

// Lock blocks until the device is free and returns the matching unlock.
func (l *Locks) Lock(device string) func() {
	l.mu.Lock()
	e, ok := l.entries[device]
	if !ok {
		e = &lockEntry{}
		l.entries[device] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, device)
		}
		l.mu.Unlock()
	}
}
