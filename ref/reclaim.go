package ref

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Reclamation defines how handles that were not closed are reclaimed.
type Reclamation int32

const (
	// ReclaimFinalizer closes forgotten handles from a runtime finalizer.
	ReclaimFinalizer Reclamation = iota

	// ReclaimPhantom links handles into a global registry and closes forgotten
	// ones on a dedicated background goroutine, notified by runtime cleanups.
	ReclaimPhantom
)

// String returns strategy name.
func (r Reclamation) String() string {
	switch r {
	case ReclaimFinalizer:
		return "finalizer"
	case ReclaimPhantom:
		return "phantom"
	default:
		return "reclamation(" + strconv.Itoa(int(r)) + ")"
	}
}

var reclamation atomic.Int32

// SetReclamation selects reclamation strategy for handles created afterwards.
//
// It is meant to be called once at process start.
func SetReclamation(r Reclamation) {
	reclamation.Store(int32(r))
}

// CurrentReclamation returns the strategy for new handles.
func CurrentReclamation() Reclamation {
	return Reclamation(reclamation.Load())
}

// UnclosedListener receives handles that became unreachable without being closed.
type UnclosedListener interface {
	// OnUnclosedHandle is called at most once per leaked handle, before its reference is dropped.
	// Trace is empty if the handle was created before the listener was installed.
	OnUnclosedHandle(id uint64, trace Trace)
}

// UnclosedListenerFunc implements UnclosedListener.
type UnclosedListenerFunc func(id uint64, trace Trace)

// OnUnclosedHandle implements UnclosedListener.
func (f UnclosedListenerFunc) OnUnclosedHandle(id uint64, trace Trace) {
	f(id, trace)
}

type listenerBox struct {
	l UnclosedListener
}

var unclosedListener atomic.Pointer[listenerBox]

// SetUnclosedListener installs a process-wide listener, nil removes it.
//
// While a listener is installed, handles capture a stack trace on creation and clone.
func SetUnclosedListener(l UnclosedListener) {
	if l == nil {
		unclosedListener.Store(nil)

		return
	}

	unclosedListener.Store(&listenerBox{l: l})
}

// UnclosedTrackingEnabled reports whether a listener is installed.
func UnclosedTrackingEnabled() bool {
	return unclosedListener.Load() != nil
}

func reportUnclosed(id uint64, trace Trace) {
	if b := unclosedListener.Load(); b != nil {
		b.l.OnUnclosedHandle(id, trace)
	}
}

// Trace is a captured call stack.
type Trace []uintptr

// traceOrNil captures the stack of the caller, skipping skip frames above traceOrNil.
func traceOrNil(skip int) Trace {
	if !UnclosedTrackingEnabled() {
		return nil
	}

	pcs := make([]uintptr, 32)
	// Frame 0 is runtime.Callers and frame 1 is traceOrNil.
	n := runtime.Callers(skip+2, pcs)

	return pcs[:n]
}

// String formats trace as function and file:line pairs.
func (t Trace) String() string {
	if len(t) == 0 {
		return ""
	}

	sb := strings.Builder{}
	frames := runtime.CallersFrames(t)

	for {
		f, more := frames.Next()

		sb.WriteString(f.Function)
		sb.WriteString("\n\t")
		sb.WriteString(f.File)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(f.Line))
		sb.WriteString("\n")

		if !more {
			break
		}
	}

	return sb.String()
}

// destroyer is a handle state that can be destroyed by the background worker.
type destroyer interface {
	destroy(correctly bool) (bool, error)
}

// link is a node of the phantom registry, guarded by registryMu.
type link struct {
	prev, next *link
}

var (
	registryMu   sync.Mutex
	registryHead *link
	registrySize int

	reclaimOnce  sync.Once
	reclaimQueue = make(chan destroyer, 1024)
)

func register(l *link) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if registryHead != nil {
		registryHead.next = l
		l.prev = registryHead
	}

	registryHead = l
	registrySize++
}

func unregister(l *link) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l.prev != nil {
		l.prev.next = l.next
	}

	if l.next != nil {
		l.next.prev = l.prev
	} else {
		registryHead = l.prev
	}

	l.prev, l.next = nil, nil
	registrySize--
}

// PhantomHandles returns the number of open handles linked into phantom registry.
func PhantomHandles() int {
	registryMu.Lock()
	defer registryMu.Unlock()

	return registrySize
}

func enqueueReclaim(d destroyer) {
	reclaimQueue <- d
}

func startReclaimer() {
	reclaimOnce.Do(func() {
		go reclaimer()
	})
}

// reclaimer drains unreachable handles, it never returns.
func reclaimer() {
	for d := range reclaimQueue {
		reclaim(d)
	}
}

func reclaim(d destroyer) {
	// A failing release function must not stop the worker.
	defer func() {
		_ = recover()
	}()

	_, _ = d.destroy(false)
}
