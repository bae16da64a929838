package session

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Store persists session values by id.
type Store interface {
	// Load returns a copy of the values saved under id, or ErrNotFound.
	Load(ctx context.Context, id string) (map[string]any, error)

	// Save replaces the values under id. A positive ttl expires them.
	Save(ctx context.Context, id string, values map[string]any, ttl time.Duration) error

	// Delete forgets id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

type memoryItem struct {
	values    map[string]any
	expiresAt time.Time // zero: never
}

// MemoryStore keeps sessions in process memory. Values are copied on the
// way in and out, so requests never share a map.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (map[string]any, error) {
	m.mu.RLock()
	item, ok := m.items[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !item.expiresAt.IsZero() && m.now().After(item.expiresAt) {
		m.mu.Lock()
		delete(m.items, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return maps.Clone(item.values), nil
}

func (m *MemoryStore) Save(_ context.Context, id string, values map[string]any, ttl time.Duration) error {
	item := memoryItem{values: maps.Clone(values)}
	if item.values == nil {
		item.values = make(map[string]any)
	}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = item
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
