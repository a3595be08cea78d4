package cache

import (
	"context"

	"github.com/vearutop/rccache/ref"
)

// NoOp is a Cache stub that stores nothing.
type NoOp[K comparable, V any] struct{}

var (
	_ Cache[string, []byte] = NoOp[string, []byte]{}
	_ Trimmable             = NoOp[string, []byte]{}
)

// Cache discards value and returns a clone of h.
func (NoOp[K, V]) Cache(_ context.Context, _ K, h *ref.Handle[V]) (*ref.Handle[V], error) {
	c := h.CloneOrNil()
	if c == nil {
		return nil, ErrInvalidHandle
	}

	return c, nil
}

// Get does not find anything.
func (NoOp[K, V]) Get(context.Context, K) (*ref.Handle[V], bool) {
	return nil, false
}

// RemoveAll removes nothing.
func (NoOp[K, V]) RemoveAll(context.Context, Predicate[K]) (int, error) {
	return 0, nil
}

// Contains does not find anything.
func (NoOp[K, V]) Contains(Predicate[K]) bool {
	return false
}

// Trim does nothing.
func (NoOp[K, V]) Trim(context.Context, TrimSeverity) {}
