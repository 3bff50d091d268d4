package state

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process WorldState backed by a mutex-guarded map. It serves
// tests and the memory database mode; values are copied on the way in and out
// so callers cannot alias internal state.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory returns an empty in-memory world state.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) GetState(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *Memory) PutState(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = stored
	return nil
}

func (m *Memory) DelState(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// GetStateByRange snapshots the matching entries under the read lock, so the
// iterator stays stable while other goroutines mutate the store.
func (m *Memory) GetStateByRange(_ context.Context, startKey, endKey string) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		if startKey != "" && k < startKey {
			continue
		}
		if endKey != "" && k >= endKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	snapshot := make([]kv, 0, len(keys))
	for _, k := range keys {
		value := make([]byte, len(m.entries[k]))
		copy(value, m.entries[k])
		snapshot = append(snapshot, kv{key: k, value: value})
	}

	return &memoryIterator{entries: snapshot, pos: -1}, nil
}

type kv struct {
	key   string
	value []byte
}

type memoryIterator struct {
	entries []kv
	pos     int
}

func (it *memoryIterator) Next() bool {
	if it.pos+1 >= len(it.entries) {
		return false
	}
	it.pos++
	return true
}

func (it *memoryIterator) Entry() (string, []byte) {
	e := it.entries[it.pos]
	return e.key, e.value
}

func (it *memoryIterator) Err() error { return nil }

func (it *memoryIterator) Close() error { return nil }
