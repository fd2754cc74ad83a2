package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a thread-safe, in-memory implementation of Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// Record appends e.
func (m *MemoryStore) Record(_ context.Context, e Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = m.nextID
	m.nextID++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.entries = append(m.entries, e)
	return e.ID, nil
}

// List returns the newest entries first.
func (m *MemoryStore) List(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// Get returns the entry with the given id.
func (m *MemoryStore) Get(_ context.Context, id int64) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Prune drops everything but the newest keep entries.
func (m *MemoryStore) Prune(_ context.Context, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	if len(m.entries) <= keep {
		return 0, nil
	}
	removed := len(m.entries) - keep
	m.entries = append([]Entry(nil), m.entries[removed:]...)
	return removed, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
