package cache_test

import (
	"context"
	"testing"

	"github.com/bool64/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/rccache"
	"github.com/vearutop/rccache/ref"
)

type trackerMock struct {
	hits   []string
	misses int
	puts   int
}

func (t *trackerMock) OnCacheHit(_ context.Context, key string) {
	t.hits = append(t.hits, key)
}

func (t *trackerMock) OnCacheMiss(context.Context) {
	t.misses++
}

func (t *trackerMock) OnCachePut(context.Context) {
	t.puts++
}

func TestInstrumented(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t, cache.Params{MaxTotalBytes: 1000, MaxEntries: 10})
	tr := &trackerMock{}
	c := cache.NewInstrumented[string, *image](m, tr)

	assert.Same(t, m, c.Delegate())

	_, found := c.Get(ctx, "A")
	assert.False(t, found)

	img := put(t, c, "A", 100)

	h, found := c.Get(ctx, "A")
	require.True(t, found)
	assert.Same(t, img, h.Get())
	require.NoError(t, h.Close())

	assert.True(t, c.Contains(cache.KeyEquals("A")))

	c.Trim(ctx, cache.TrimOnBackgrounded)
	assert.False(t, c.Contains(cache.KeyEquals("A")))

	n, err := c.RemoveAll(ctx, cache.AnyKey[string])
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, []string{"A"}, tr.hits)
	assert.Equal(t, 1, tr.misses)
	assert.Equal(t, 1, tr.puts)
}

func TestInstrumented_putBeforeFailure(t *testing.T) {
	tr := &trackerMock{}
	c := cache.NewInstrumented[string, *image](newMemory(t, cache.Params{MaxTotalBytes: 1000, MaxEntries: 10}), tr)

	_, err := c.Cache(context.Background(), "A", nil)
	assert.ErrorIs(t, err, cache.ErrInvalidHandle)
	assert.Equal(t, 1, tr.puts)
}

func TestStatsTracker(t *testing.T) {
	ctx := context.Background()
	st := &stats.TrackerMock{}
	c := cache.NewInstrumented[string, []byte](cache.NoOp[string, []byte]{}, cache.StatsTracker[string]{
		Stats: st,
		Name:  "blobs",
	})

	h := ref.Of([]byte("abc"), func([]byte) error { return nil })

	cl, err := c.Cache(ctx, "A", h)
	require.NoError(t, err)
	require.NoError(t, ref.CloseAll(h, cl))

	_, found := c.Get(ctx, "A")
	assert.False(t, found)

	assert.Equal(t, 1, st.Int(cache.MetricPut))
	assert.Equal(t, 1, st.Int(cache.MetricMiss))
	assert.Equal(t, 0, st.Int(cache.MetricHit))
}
