// Package kvstore holds the in-process key/value stores used for fast
// document lookup. Any implementation must be safe for concurrent use; the
// HTTP handlers read from a single shared instance.
package kvstore

// Store maps keys to values.
type Store[K comparable, V any] interface {
	Insert(key K, value V)
	Get(key K) (V, bool)
	Len() int
}

// New returns an unbounded MapStore when capacity is not positive and an
// LRUStore holding at most capacity entries otherwise.
func New[K comparable, V any](capacity int) (Store[K, V], error) {
	if capacity <= 0 {
		return NewMapStore[K, V](), nil
	}
	return NewLRUStore[K, V](capacity)
}
