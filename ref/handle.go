package ref

import (
	"errors"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

var handleSeq atomic.Uint64

// state is shared by a handle and its reclamation hook, it must not reference the handle.
type state[T any] struct {
	link

	mu      sync.Mutex
	closed  bool
	slot    *Slot[T]
	id      uint64
	trace   Trace
	phantom bool
}

// destroy drops the slot reference once, it returns true if this call did it.
func (s *state[T]) destroy(correctly bool) (bool, error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return false, nil
	}

	s.closed = true
	trace := s.trace
	s.mu.Unlock()

	if s.phantom {
		unregister(&s.link)
	}

	liveHandles.Dec()

	if !correctly {
		reportUnclosed(s.id, trace)
	}

	return true, s.slot.Release()
}

// Handle is a closeable reference to a value owned by a Slot.
//
// Every open handle holds one reference on its slot. Handles are safe for concurrent use.
type Handle[T any] struct {
	s       *state[T]
	cleanup runtime.Cleanup
}

var _ io.Closer = &Handle[io.Closer]{}

// Of creates a new slot for value and returns the first handle to it.
//
// Nil value results in nil handle.
func Of[T any](value T, release ReleaseFunc[T]) *Handle[T] {
	if isNil(value) {
		return nil
	}

	return adopt(NewSlot(value, release), traceOrNil(1))
}

// OfCloser creates a handle that closes value on release.
func OfCloser[T io.Closer](value T) *Handle[T] {
	if isNil(value) {
		return nil
	}

	return adopt(NewSlot(value, func(v T) error {
		return v.Close()
	}), traceOrNil(1))
}

// FromSlot acquires a reference on s and returns a new handle holding it.
//
// It panics with ErrReleased if the slot is released.
func FromSlot[T any](s *Slot[T]) *Handle[T] {
	s.Acquire()

	return adopt(s, traceOrNil(1))
}

// adopt wraps a reference that is already counted in slot.
func adopt[T any](slot *Slot[T], trace Trace) *Handle[T] {
	st := &state[T]{
		slot:    slot,
		id:      handleSeq.Add(1),
		trace:   trace,
		phantom: CurrentReclamation() == ReclaimPhantom,
	}

	h := &Handle[T]{s: st}

	liveHandles.Inc()

	if st.phantom {
		startReclaimer()
		register(&st.link)

		h.cleanup = runtime.AddCleanup(h, enqueueReclaim, destroyer(st))
	} else {
		runtime.SetFinalizer(h, finalizeHandle[T])
	}

	return h
}

func finalizeHandle[T any](h *Handle[T]) {
	_, _ = h.s.destroy(false)
}

// Get returns the value, it panics with ErrClosed if the handle is closed.
func (h *Handle[T]) Get() T {
	h.s.mu.Lock()

	if h.s.closed {
		h.s.mu.Unlock()
		panic(ErrClosed)
	}

	v := h.s.slot.Get()
	h.s.mu.Unlock()

	runtime.KeepAlive(h)

	return v
}

// Clone returns a new handle to the same slot, it panics with ErrClosed if the handle is closed.
func (h *Handle[T]) Clone() *Handle[T] {
	c := h.cloneOrNil(1)
	if c == nil {
		panic(ErrClosed)
	}

	return c
}

// CloneOrNil returns a new handle to the same slot, or nil if h is nil or closed.
func (h *Handle[T]) CloneOrNil() *Handle[T] {
	return h.cloneOrNil(1)
}

// cloneOrNil captures trace skipping its own frame and skip frames of exported callers.
func (h *Handle[T]) cloneOrNil(skip int) *Handle[T] {
	if h == nil {
		return nil
	}

	trace := traceOrNil(skip + 1)

	h.s.mu.Lock()
	h.s.trace = trace

	if h.s.closed {
		h.s.mu.Unlock()

		return nil
	}

	h.s.slot.Acquire()
	h.s.mu.Unlock()

	runtime.KeepAlive(h)

	return adopt(h.s.slot, trace)
}

// Close drops the reference held by the handle.
//
// Only the first call has effect, subsequent calls return nil. If it was the last
// reference, the error of release function is returned.
func (h *Handle[T]) Close() error {
	if h == nil {
		return nil
	}

	released, err := h.s.destroy(true)
	if released {
		if h.s.phantom {
			h.cleanup.Stop()
		} else {
			runtime.SetFinalizer(h, nil)
		}
	}

	runtime.KeepAlive(h)

	return err
}

// IsValid reports whether h is not nil and not closed.
func (h *Handle[T]) IsValid() bool {
	if h == nil {
		return false
	}

	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	return !h.s.closed
}

// ID returns process-unique handle identifier.
func (h *Handle[T]) ID() uint64 {
	return h.s.id
}

// Trace returns the stack captured at creation or at the latest clone, if tracking is enabled.
func (h *Handle[T]) Trace() Trace {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	return h.s.trace
}

// SetTrace replaces diagnostic trace reported for a leaked handle.
func (h *Handle[T]) SetTrace(t Trace) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	h.s.trace = t
}

// SharedRefCount returns the number of references on the underlying slot, for diagnostics.
func (h *Handle[T]) SharedRefCount() int {
	return h.s.slot.RefCount()
}

// Shares reports whether both handles refer to the same slot.
func (h *Handle[T]) Shares(other *Handle[T]) bool {
	if h == nil || other == nil {
		return false
	}

	return h.s.slot == other.s.slot
}

// CloneAll clones every handle, closed and nil handles result in nil elements.
func CloneAll[T any](handles []*Handle[T]) []*Handle[T] {
	if handles == nil {
		return nil
	}

	res := make([]*Handle[T], len(handles))

	for i, h := range handles {
		res[i] = h.cloneOrNil(1)
	}

	return res
}

// CloseAll closes every non-nil closer and joins their errors.
func CloseAll[C io.Closer](closers ...C) error {
	var errs []error

	for _, c := range closers {
		if isNil(c) {
			continue
		}

		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
