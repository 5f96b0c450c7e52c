package clientstate

import (
	"context"
	"sync"
)

// MemStore is the ephemeral store tier: an in-process map that lives as
// long as the client does.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemStore creates an empty ephemeral store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

var _ Store = (*MemStore)(nil)

func (m *MemStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", ErrMiss
	}
	return value, nil
}

func (m *MemStore) Set(ctx context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemStore) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
