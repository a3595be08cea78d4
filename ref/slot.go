package ref

import (
	"fmt"
	"reflect"
	"sync"
)

// ReleaseFunc frees the resource held by a value.
type ReleaseFunc[T any] func(value T) error

// Slot is a reference counted owner of a single value.
//
// The count starts at one. The release function is called exactly once,
// when the count drops to zero, and the slot is unusable afterwards.
type Slot[T any] struct {
	mu      sync.Mutex
	value   T
	refs    int
	release ReleaseFunc[T]
}

// NewSlot creates a slot that owns value with a reference count of one.
//
// It panics with ErrNilValue if value or release is nil.
func NewSlot[T any](value T, release ReleaseFunc[T]) *Slot[T] {
	if isNil(value) {
		panic(fmt.Errorf("%w: slot value of type %T", ErrNilValue, value))
	}

	if release == nil {
		panic(fmt.Errorf("%w: release function", ErrNilValue))
	}

	s := &Slot[T]{
		value:   value,
		refs:    1,
		release: release,
	}

	addLive(value)

	return s
}

// Acquire adds a reference, it panics with ErrReleased if the slot is released.
func (s *Slot[T]) Acquire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs <= 0 {
		panic(ErrReleased)
	}

	s.refs++
}

// TryAcquire adds a reference unless the slot is already released.
func (s *Slot[T]) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs <= 0 {
		return false
	}

	s.refs++

	return true
}

// Release drops a reference.
//
// The last Release takes the value out of the slot and passes it to the release
// function, its error is returned. The slot is released even if that function fails.
// Release panics with ErrReleased if the slot is already released.
func (s *Slot[T]) Release() error {
	s.mu.Lock()

	if s.refs <= 0 {
		s.mu.Unlock()
		panic(ErrReleased)
	}

	s.refs--

	if s.refs > 0 {
		s.mu.Unlock()

		return nil
	}

	var zero T

	v := s.value
	s.value = zero
	s.mu.Unlock()

	removeLive(v)

	return s.release(v)
}

// Get returns the value, it panics with ErrReleased if the slot is released.
func (s *Slot[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs <= 0 {
		panic(ErrReleased)
	}

	return s.value
}

// IsValid reports whether the slot still holds its value.
func (s *Slot[T]) IsValid() bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.refs > 0
}

// RefCount returns current number of references, for diagnostics.
func (s *Slot[T]) RefCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.refs
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
