package cache_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/rccache"
	"github.com/vearutop/rccache/ref"
)

func TestSimpleKey_ContainsURI(t *testing.T) {
	u, err := url.Parse("https://example.com/img/1.png")
	require.NoError(t, err)

	k := cache.SimpleKey("thumb:https://example.com/img/1.png:64x64")

	assert.Equal(t, "thumb:https://example.com/img/1.png:64x64", k.String())
	assert.True(t, k.ContainsURI(u))
	assert.False(t, cache.SimpleKey("https://example.com/img/2.png").ContainsURI(u))
	assert.False(t, k.ContainsURI(nil))
}

func TestURIPredicate(t *testing.T) {
	ctx := context.Background()
	u, err := url.Parse("https://example.com/img/1.png")
	require.NoError(t, err)

	m, err := cache.NewMemory[cache.SimpleKey, *image](images, nil, cache.Params{MaxTotalBytes: 1000, MaxEntries: 10})
	require.NoError(t, err)

	for _, k := range []cache.SimpleKey{
		"https://example.com/img/1.png",
		"thumb:https://example.com/img/1.png",
		"https://example.com/img/2.png",
	} {
		_, h := newImage(10)
		c, err := m.Cache(ctx, k, h)
		require.NoError(t, err)
		require.NoError(t, ref.CloseAll(h, c))
	}

	assert.True(t, m.Contains(cache.URIPredicate(u)))

	n, err := m.RemoveAll(ctx, cache.URIPredicate(u))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []cache.SimpleKey{"https://example.com/img/2.png"}, m.Keys())
}
