// internal/storage/memory_store.go
package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps slots in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[Slot][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Slot][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, slot Slot) ([]byte, bool, error) {
	if err := checkSlot(slot); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[slot]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Save(_ context.Context, slot Slot, value []byte) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[slot] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, slot Slot) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, slot)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
