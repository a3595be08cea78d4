package cache_test

import (
	"context"
	"strconv"
	"testing"

	pca "github.com/patrickmn/go-cache"
	"github.com/vearutop/rccache"
	"github.com/vearutop/rccache/ref"
)

func noRelease([]byte) error { return nil }

func Benchmark_Memory(b *testing.B) {
	c, err := cache.NewMemory[string, []byte](cache.ByteSlices, nil, cache.Params{
		MaxTotalBytes: 1 << 30,
		MaxEntries:    1 << 20,
	})
	if err != nil {
		b.Fatal(err)
	}

	ctx := context.Background()
	val := []byte("123")

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)
		// nolint
		if i < 10000 {
			h := ref.Of(val, noRelease)
			cached, _ := c.Cache(ctx, k, h)
			_ = ref.CloseAll(h, cached)
		}

		// nolint
		if h, found := c.Get(ctx, k); found {
			_ = h.Close()
		}
	}
}

func Benchmark_Sharded(b *testing.B) {
	c, err := cache.NewSharded[[]byte](0, cache.ByteSlices, nil, cache.Params{
		MaxTotalBytes: 1 << 30,
		MaxEntries:    1 << 20,
	})
	if err != nil {
		b.Fatal(err)
	}

	ctx := context.Background()
	val := []byte("123")

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0

		for pb.Next() {
			i++
			k := "oneone" + strconv.Itoa(i%10000)

			h, found := c.Get(ctx, k)
			if !found {
				h = ref.Of(val, noRelease)
				cached, _ := c.Cache(ctx, k, h)
				_ = cached.Close()
			}

			_ = h.Close()
		}
	})
}

func Benchmark_Loader(b *testing.B) {
	c, err := cache.NewMemory[string, []byte](cache.ByteSlices, nil, cache.Params{
		MaxTotalBytes: 1 << 30,
		MaxEntries:    1 << 20,
	})
	if err != nil {
		b.Fatal(err)
	}

	l := cache.NewLoader[string, []byte](c)
	ctx := context.Background()
	val := []byte("123")

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)
		// nolint
		h, _ := l.Get(ctx, k, func(ctx context.Context) (*ref.Handle[[]byte], error) {
			return ref.Of(val, noRelease), nil
		})
		_ = h.Close()
	}
}

func Benchmark_Patrickmn(b *testing.B) {
	c := pca.New(pca.NoExpiration, pca.NoExpiration)
	val := []byte("123")

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)
		// nolint
		if i < 10000 {
			c.Set(k, val, pca.NoExpiration)
		}
		// nolint
		_, _ = c.Get(k)
	}
}
