package ref

import (
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// liveObjects counts slots per value identity, diagnostics only.
var liveObjects = xsync.NewMapOf[any, int]()

// liveHandles counts open handles.
var liveHandles = xsync.NewCounter()

type liveKey struct {
	typ reflect.Type
	ptr uintptr
}

// identityOf returns a map key that identifies v by address.
// Only pointer-like values have identity, others are not tracked.
func identityOf(v any) (any, bool) {
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice:
		return liveKey{typ: rv.Type(), ptr: rv.Pointer()}, true
	default:
		return nil, false
	}
}

func addLive(v any) {
	k, ok := identityOf(v)
	if !ok {
		return
	}

	liveObjects.Compute(k, func(cnt int, _ bool) (int, bool) {
		return cnt + 1, false
	})
}

func removeLive(v any) {
	k, ok := identityOf(v)
	if !ok {
		return
	}

	liveObjects.Compute(k, func(cnt int, loaded bool) (int, bool) {
		if !loaded || cnt <= 1 {
			return 0, true
		}

		return cnt - 1, false
	})
}

// LiveCount returns the number of unreleased slots that own v.
//
// Only pointer-like values (pointers, maps, channels, funcs, slices) are tracked,
// zero is returned for others: equal strings or numbers have no identity.
func LiveCount(v any) int {
	k, ok := identityOf(v)
	if !ok {
		return 0
	}

	cnt, _ := liveObjects.Load(k)

	return cnt
}

// LiveObjects returns the number of distinct values owned by unreleased slots.
func LiveObjects() int {
	return liveObjects.Size()
}

// LiveHandles returns the number of handles that are not closed yet.
func LiveHandles() int64 {
	return liveHandles.Value()
}
