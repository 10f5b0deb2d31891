package bookmarks

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Hub is shared in-process state. Handles created from the same Hub see each
// other's writes as Events, the way browser tabs see each other's storage.
type Hub struct {
	mu     sync.Mutex
	data   map[string]string
	nextID int
	subs   map[int]hubSub
}

type hubSub struct {
	owner *Memory
	fn    func(Event)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{data: make(map[string]string), subs: make(map[int]hubSub)}
}

// Handle returns a new store attached to the hub.
func (h *Hub) Handle() *Memory {
	return &Memory{hub: h}
}

// Memory is an in-process Store.
type Memory struct {
	hub *Hub
}

// NewMemory returns a handle on a private hub.
func NewMemory() *Memory {
	return NewHub().Handle()
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	v, ok := m.hub.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.hub.mu.Lock()
	old := m.hub.data[key]
	m.hub.data[key] = value
	var targets []func(Event)
	if old != value {
		for _, s := range m.hub.subs {
			if s.owner != m {
				targets = append(targets, s.fn)
			}
		}
	}
	m.hub.mu.Unlock()

	ev := Event{Key: key, OldValue: old, NewValue: value}
	for _, fn := range targets {
		fn(ev)
	}
	return nil
}

// Keys implements Store.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	var keys []string
	for k := range m.hub.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Subscribe implements Store.
func (m *Memory) Subscribe(fn func(Event)) (func() error, error) {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	m.hub.nextID++
	id := m.hub.nextID
	m.hub.subs[id] = hubSub{owner: m, fn: fn}
	return func() error {
		m.hub.mu.Lock()
		delete(m.hub.subs, id)
		m.hub.mu.Unlock()
		return nil
	}, nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	for id, s := range m.hub.subs {
		if s.owner == m {
			delete(m.hub.subs, id)
		}
	}
	return nil
}
