package cache

import (
	"context"

	"github.com/vearutop/rccache/ref"
)

// Cache stores reference counted values by key.
//
// Values are passed and returned as handles, every returned handle is owned by
// the caller and must be closed.
type Cache[K comparable, V any] interface {
	// Cache stores a clone of h under key, replacing previous entry, and returns
	// another clone owned by the caller.
	Cache(ctx context.Context, key K, h *ref.Handle[V]) (*ref.Handle[V], error)

	// Get returns a handle to cached value, or false on cache miss.
	Get(ctx context.Context, key K) (*ref.Handle[V], bool)

	// RemoveAll removes entries with keys matching predicate and returns their count.
	RemoveAll(ctx context.Context, predicate Predicate[K]) (int, error)

	// Contains checks if any key matches predicate.
	Contains(predicate Predicate[K]) bool
}

// Trimmable can shrink its memory usage on request.
type Trimmable interface {
	Trim(ctx context.Context, severity TrimSeverity)
}

// ValueDescriptor tells accounted size of a value.
type ValueDescriptor[V any] interface {
	// SizeInBytes must not retain the value.
	SizeInBytes(value V) int64
}

// SizeFunc implements ValueDescriptor.
type SizeFunc[V any] func(value V) int64

// SizeInBytes implements ValueDescriptor.
func (f SizeFunc[V]) SizeInBytes(value V) int64 {
	return f(value)
}

// ByteSlices accounts []byte values by length.
var ByteSlices = SizeFunc[[]byte](func(v []byte) int64 {
	return int64(len(v))
})

// Predicate matches cache keys.
type Predicate[K any] func(key K) bool

// KeyEquals matches a single key.
func KeyEquals[K comparable](key K) Predicate[K] {
	return func(k K) bool {
		return k == key
	}
}

// AnyKey matches every key.
func AnyKey[K any](K) bool {
	return true
}
