// Package memory provides a process-local persistence slot backend.
package memory

import (
	"context"
	"sort"
	"sync"
)

// SlotMap implements persist.Storage with a map. Values are copied on the
// way in and out.
type SlotMap struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewSlotMap creates an empty SlotMap.
func NewSlotMap() *SlotMap {
	return &SlotMap{slots: make(map[string][]byte)}
}

func (m *SlotMap) Read(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.slots[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *SlotMap) Write(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = append([]byte(nil), data...)
	return nil
}

func (m *SlotMap) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

// Keys returns the stored keys, sorted.
func (m *SlotMap) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.slots))
	for k := range m.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (m *SlotMap) Close() error { return nil }
