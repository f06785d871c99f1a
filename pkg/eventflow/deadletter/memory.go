package deadletter

import (
	"context"
	"slices"
	"sync"
)

// DefaultMaxSize caps a MemoryStore created with a non-positive size.
const DefaultMaxSize = 10000

// MemoryStore keeps failed events in memory. Suitable for tests and
// single-process deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	events  map[string]*FailedEvent
	order   []string
	maxSize int
	closed  bool
}

// NewMemoryStore creates a MemoryStore holding at most maxSize events.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &MemoryStore{
		events:  make(map[string]*FailedEvent),
		maxSize: maxSize,
	}
}

// Enqueue implements Store.
func (m *MemoryStore) Enqueue(_ context.Context, f *FailedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if prev, ok := m.events[f.EventID]; ok {
		merged := *f
		merged.Attempts = prev.Attempts + f.Attempts
		merged.FirstFailedAt = prev.FirstFailedAt
		m.events[f.EventID] = &merged
		return nil
	}
	if len(m.events) >= m.maxSize {
		return ErrStoreFull
	}

	stored := *f
	m.events[f.EventID] = &stored
	m.order = append(m.order, f.EventID)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, limit int) ([]*FailedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	n := len(m.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*FailedEvent, 0, n)
	for _, id := range m.order[:n] {
		f := *m.events[id]
		out = append(out, &f)
	}
	return out, nil
}

// Acknowledge implements Store.
func (m *MemoryStore) Acknowledge(_ context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	for _, id := range ids {
		delete(m.events, id)
	}
	m.order = slices.DeleteFunc(m.order, func(id string) bool {
		_, ok := m.events[id]
		return !ok
	})
	return nil
}

// Count implements Store.
func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}
	return len(m.events), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
