package ref_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/rccache/ref"
)

type bitmap struct {
	pixels   []byte
	recycled bool
}

func TestNewSlot(t *testing.T) {
	b := &bitmap{pixels: make([]byte, 16)}
	released := 0

	s := ref.NewSlot(b, func(v *bitmap) error {
		released++
		v.recycled = true

		return nil
	})

	assert.True(t, s.IsValid())
	assert.Equal(t, 1, s.RefCount())
	assert.Same(t, b, s.Get())
	assert.Equal(t, 1, ref.LiveCount(b))

	s.Acquire()
	assert.Equal(t, 2, s.RefCount())

	require.NoError(t, s.Release())
	assert.Equal(t, 0, released)
	assert.False(t, b.recycled)

	require.NoError(t, s.Release())
	assert.Equal(t, 1, released)
	assert.True(t, b.recycled)
	assert.False(t, s.IsValid())
	assert.Equal(t, 0, ref.LiveCount(b))
}

func TestNewSlot_nil(t *testing.T) {
	assert.Panics(t, func() {
		ref.NewSlot[*bitmap](nil, func(*bitmap) error { return nil })
	})

	assert.Panics(t, func() {
		ref.NewSlot(&bitmap{}, nil)
	})

	func() {
		defer func() {
			err, ok := recover().(error)
			require.True(t, ok)
			assert.True(t, errors.Is(err, ref.ErrNilValue))
		}()

		ref.NewSlot[[]byte](nil, func([]byte) error { return nil })
	}()
}

func TestSlot_released(t *testing.T) {
	s := ref.NewSlot(&bitmap{}, func(*bitmap) error { return nil })
	require.NoError(t, s.Release())

	assert.PanicsWithError(t, ref.ErrReleased.Error(), func() { s.Acquire() })
	assert.PanicsWithError(t, ref.ErrReleased.Error(), func() { _ = s.Release() })
	assert.PanicsWithError(t, ref.ErrReleased.Error(), func() { s.Get() })
	assert.False(t, s.TryAcquire())
}

func TestSlot_Release_failure(t *testing.T) {
	b := &bitmap{}
	calls := 0
	s := ref.NewSlot(b, func(*bitmap) error {
		calls++

		return errors.New("recycle failed")
	})

	assert.EqualError(t, s.Release(), "recycle failed")
	assert.False(t, s.IsValid())
	assert.Equal(t, 0, ref.LiveCount(b))
	assert.Equal(t, 1, calls)
	assert.Panics(t, func() { _ = s.Release() })
	assert.Equal(t, 1, calls)
}

func TestSlot_LiveCount_sameValue(t *testing.T) {
	b := &bitmap{}
	noop := func(*bitmap) error { return nil }

	s1 := ref.NewSlot(b, noop)
	s2 := ref.NewSlot(b, noop)

	assert.Equal(t, 2, ref.LiveCount(b))
	require.NoError(t, s1.Release())
	assert.Equal(t, 1, ref.LiveCount(b))
	require.NoError(t, s2.Release())
	assert.Equal(t, 0, ref.LiveCount(b))
}

func TestSlot_LiveCount_identity(t *testing.T) {
	s1 := ref.NewSlot("pixels", func(string) error { return nil })
	s2 := ref.NewSlot("pixels", func(string) error { return nil })

	assert.Equal(t, 0, ref.LiveCount("pixels"))

	b1, b2 := &bitmap{}, &bitmap{}
	noop := func(*bitmap) error { return nil }
	s3 := ref.NewSlot(b1, noop)
	s4 := ref.NewSlot(b2, noop)

	assert.Equal(t, 1, ref.LiveCount(b1))
	assert.Equal(t, 1, ref.LiveCount(b2))

	for _, release := range []func() error{s1.Release, s2.Release, s3.Release, s4.Release} {
		require.NoError(t, release())
	}

	assert.Equal(t, 0, ref.LiveCount(b1))
	assert.Equal(t, 0, ref.LiveCount(b2))
}

func TestSlot_concurrency(t *testing.T) {
	released := 0
	s := ref.NewSlot(&bitmap{}, func(*bitmap) error {
		released++

		return nil
	})

	wg := sync.WaitGroup{}

	for i := 0; i < 100; i++ {
		s.Acquire()
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NotNil(t, s.Get())
			assert.NoError(t, s.Release())
		}()
	}

	wg.Wait()

	assert.Equal(t, 0, released)
	assert.Equal(t, 1, s.RefCount())
	require.NoError(t, s.Release())
	assert.Equal(t, 1, released)
}
