package cache_test

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bool64/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/rccache"
)

func TestSharded(t *testing.T) {
	ctx := context.Background()
	st := &stats.TrackerMock{}

	c, err := cache.NewSharded[*image](4, images, nil,
		cache.Params{MaxTotalBytes: 4000, MaxEntries: 400},
		cache.MemoryConfig{Name: "images", Stats: st})
	require.NoError(t, err)
	assert.Equal(t, 4, c.Shards())

	imgs := map[string]*image{}

	for i := 0; i < 100; i++ {
		k := "key" + strconv.Itoa(i)
		imgs[k] = put(t, c, k, 10)
	}

	assert.Equal(t, 100, c.Count())
	assert.Equal(t, int64(1000), c.SizeInBytes())
	assert.Equal(t, 100, st.Int(cache.MetricWrite))

	for k, img := range imgs {
		h, found := c.Get(ctx, k)
		require.True(t, found, k)
		assert.Same(t, img, h.Get())
		require.NoError(t, h.Close())
	}

	isKey1x := func(k string) bool { return strings.HasPrefix(k, "key1") }

	assert.True(t, c.Contains(isKey1x))

	n, err := c.RemoveAll(ctx, isKey1x)
	require.NoError(t, err)
	assert.Equal(t, 11, n) // key1, key10-key19.
	assert.False(t, c.Contains(isKey1x))

	c.Trim(ctx, cache.TrimOnBackgrounded)
	assert.Equal(t, 0, c.Count())

	n, err = c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, img := range imgs {
		assert.Equal(t, int32(1), img.recycled.Load())
	}
}

func TestSharded_paramsPerShard(t *testing.T) {
	c, err := cache.NewSharded[*image](0, images, nil, cache.Params{MaxTotalBytes: 1600, MaxEntries: 32})
	require.NoError(t, err)
	assert.Equal(t, cache.DefaultShards, c.Shards())

	for i := 0; i < 1000; i++ {
		put(t, c, strconv.Itoa(i), 10)
	}

	// Each of 16 shards holds up to 2 entries.
	assert.LessOrEqual(t, c.Count(), 32)
	assert.LessOrEqual(t, c.SizeInBytes(), int64(1600))
}

func TestSharded_invalidParams(t *testing.T) {
	_, err := cache.NewSharded[*image](2, images, nil, cache.Params{})
	assert.ErrorIs(t, err, cache.ErrInvalidParams)

	_, err = cache.NewSharded[*image](2, images, nil, nil)
	assert.ErrorIs(t, err, cache.ErrInvalidParams)
}

func TestSharded_concurrency(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewSharded[*image](8, images, nil, cache.Params{MaxTotalBytes: 1 << 20, MaxEntries: 1 << 20})
	require.NoError(t, err)

	wg := sync.WaitGroup{}

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 50; j++ {
				k := strconv.Itoa(i*50 + j)
				img := put(t, c, k, 1)

				h, found := c.Get(ctx, k)
				if assert.True(t, found) {
					assert.Same(t, img, h.Get())
					assert.NoError(t, h.Close())
				}
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1000, c.Count())
}
