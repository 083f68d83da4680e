package storage

import (
	"context"
	"sort"
	"sync"
)

type Memory struct {
	mu      sync.RWMutex
	devices map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{devices: make(map[string]map[string]string)}
}

func (m *Memory) Get(_ context.Context, device, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.devices[device][key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, device, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv, ok := m.devices[device]
	if !ok {
		kv = make(map[string]string)
		m.devices[device] = kv
	}
	kv[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, device string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv := m.devices[device]
	for _, k := range keys {
		delete(kv, k)
	}
	return nil
}

func (m *Memory) Keys(_ context.Context, device string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.devices[device]))
	for k := range m.devices[device] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Close() error { return nil }
