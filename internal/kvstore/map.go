package kvstore

import "sync"

// MapStore is an unbounded store guarded by an RWMutex, so lookups from many
// request goroutines proceed in parallel while inserts take the write lock.
type MapStore[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// NewMapStore constructs an empty MapStore.
func NewMapStore[K comparable, V any]() *MapStore[K, V] {
	return &MapStore[K, V]{data: make(map[K]V)}
}

// Insert stores or replaces the value for key.
func (m *MapStore[K, V]) Insert(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Get returns the value for key and whether it was present.
func (m *MapStore[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// Len reports the number of entries.
func (m *MapStore[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
