package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vearutop/rccache"
)

type trimRecorder struct {
	severities []cache.TrimSeverity
}

func (r *trimRecorder) Trim(_ context.Context, severity cache.TrimSeverity) {
	r.severities = append(r.severities, severity)
}

func TestTrimmer_Trim(t *testing.T) {
	ctx := context.Background()
	r1, r2 := &trimRecorder{}, &trimRecorder{}

	tr := &cache.Trimmer{}
	err := tr.Trim(ctx, cache.TrimOnCloseToHeapLimit)
	assert.True(t, errors.Is(err, cache.ErrNothingToTrim))

	tr.Register(r1)
	tr.Register(r2)

	assert.NoError(t, tr.Trim(ctx, cache.TrimOnCloseToHeapLimit))

	err = tr.Trim(ctx, cache.TrimOnCloseToHeapLimit)
	assert.True(t, errors.Is(err, cache.ErrAlreadyTrimmed)) // Flood protection.

	// More severe request is not skipped.
	assert.NoError(t, tr.Trim(ctx, cache.TrimOnBackgrounded))

	err = tr.Trim(ctx, cache.TrimOnSystemLowMemoryBackground)
	assert.True(t, errors.Is(err, cache.ErrAlreadyTrimmed))

	assert.Equal(t, []cache.TrimSeverity{cache.TrimOnCloseToHeapLimit, cache.TrimOnBackgrounded}, r1.severities)
	assert.Equal(t, r1.severities, r2.severities)

	tr.Unregister(r1)
	tr.SkipInterval = time.Nanosecond
	time.Sleep(time.Millisecond)

	assert.NoError(t, tr.Trim(ctx, cache.TrimOnCloseToHeapLimit))
	assert.Len(t, r1.severities, 2)
	assert.Len(t, r2.severities, 3)
}

func TestTrimmer_Trim_memory(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t, cache.Params{MaxTotalBytes: 1000, MaxEntries: 10})

	put(t, m, "A", 100)
	put(t, m, "B", 100)

	tr := &cache.Trimmer{}
	tr.Register(m)

	assert.NoError(t, tr.Trim(ctx, cache.TrimOnCloseToHeapLimit))
	assert.Equal(t, []string{"B"}, m.Keys())
}
