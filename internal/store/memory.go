package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/calloway-labs/dispatch-backend/internal/workitem"
)

// Memory is a map-backed Store for tests and single-process dev runs.
// Snapshots are copied through JSON so callers never share mutable state
// with the store.
type Memory struct {
	mu    sync.RWMutex
	items map[uuid.UUID][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[uuid.UUID][]byte)}
}

func (m *Memory) Put(ctx context.Context, item *workitem.WorkItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = raw
	return nil
}

func (m *Memory) Get(ctx context.Context, id uuid.UUID) (*workitem.WorkItem, error) {
	m.mu.RLock()
	raw, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var item workitem.WorkItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (m *Memory) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// Len reports how many snapshots are held. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
