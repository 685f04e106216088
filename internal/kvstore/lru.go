package kvstore

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUStore bounds memory by evicting the least recently used entry. Get
// refreshes recency.
type LRUStore[K comparable, V any] struct {
	cache *lru.Cache[K, V]
}

// NewLRUStore constructs an LRUStore with the given capacity.
func NewLRUStore[K comparable, V any](capacity int) (*LRUStore[K, V], error) {
	cache, err := lru.New[K, V](capacity)
	if err != nil {
		return nil, fmt.Errorf("new lru store: %w", err)
	}
	return &LRUStore[K, V]{cache: cache}, nil
}

func (s *LRUStore[K, V]) Insert(key K, value V) {
	s.cache.Add(key, value)
}

func (s *LRUStore[K, V]) Get(key K) (V, bool) {
	return s.cache.Get(key)
}

func (s *LRUStore[K, V]) Len() int {
	return s.cache.Len()
}
