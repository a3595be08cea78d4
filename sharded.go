package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/vearutop/rccache/ref"
)

// DefaultShards is a default number of shards in Sharded.
const DefaultShards = 16

var (
	_ Cache[string, []byte] = &Sharded[[]byte]{}
	_ Trimmable             = &Sharded[[]byte]{}
)

// Sharded is a string keyed cache split into independent Memory shards to reduce lock contention.
//
// Capacity params are divided evenly between shards, so eviction order is kept per shard.
type Sharded[V any] struct {
	shards []*Memory[string, V]
}

// NewSharded creates sharded cache, shards count defaults to DefaultShards.
//
// Shards are named after MemoryConfig.Name with shard index suffix.
func NewSharded[V any](
	shards int,
	descriptor ValueDescriptor[V],
	trimStrategy TrimStrategy,
	params ParamsProvider,
	cfg ...MemoryConfig,
) (*Sharded[V], error) {
	if shards <= 0 {
		shards = DefaultShards
	}

	config := MemoryConfig{}
	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if params == nil {
		return nil, ErrInvalidParams
	}

	c := &Sharded[V]{
		shards: make([]*Memory[string, V], shards),
	}

	perShard := ParamsFunc(func() Params {
		return params.CacheParams().Divide(shards)
	})

	for i := range c.shards {
		shardConfig := config
		shardConfig.Name = config.Name + "." + strconv.Itoa(i)

		m, err := NewMemory[string, V](descriptor, trimStrategy, perShard, shardConfig)
		if err != nil {
			return nil, err
		}

		c.shards[i] = m
	}

	return c, nil
}

// Divide returns params for one of n partitions, limits are kept positive.
func (p Params) Divide(n int) Params {
	if n <= 1 {
		return p
	}

	div64 := func(v int64) int64 {
		if v <= 0 {
			return v
		}

		return max(v/int64(n), 1)
	}

	div := func(v int) int {
		if v <= 0 {
			return v
		}

		return max(v/n, 1)
	}

	return Params{
		MaxTotalBytes:           div64(p.MaxTotalBytes),
		MaxEntries:              div(p.MaxEntries),
		MaxEvictionQueueBytes:   div64(p.MaxEvictionQueueBytes),
		MaxEvictionQueueEntries: div(p.MaxEvictionQueueEntries),
	}
}

func (c *Sharded[V]) shard(key string) *Memory[string, V] {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

// Cache stores value in key shard.
func (c *Sharded[V]) Cache(ctx context.Context, key string, h *ref.Handle[V]) (*ref.Handle[V], error) {
	return c.shard(key).Cache(ctx, key, h)
}

// Get reads value from key shard.
func (c *Sharded[V]) Get(ctx context.Context, key string) (*ref.Handle[V], bool) {
	return c.shard(key).Get(ctx, key)
}

// RemoveAll removes matching entries from all shards.
func (c *Sharded[V]) RemoveAll(ctx context.Context, predicate Predicate[string]) (int, error) {
	var (
		total int
		errs  []error
	)

	for _, s := range c.shards {
		n, err := s.RemoveAll(ctx, predicate)
		total += n

		if err != nil {
			errs = append(errs, err)
		}
	}

	return total, errors.Join(errs...)
}

// Contains checks if any key in any shard matches predicate.
func (c *Sharded[V]) Contains(predicate Predicate[string]) bool {
	for _, s := range c.shards {
		if s.Contains(predicate) {
			return true
		}
	}

	return false
}

// Clear removes all entries.
func (c *Sharded[V]) Clear(ctx context.Context) (int, error) {
	return c.RemoveAll(ctx, AnyKey[string])
}

// Trim trims every shard.
func (c *Sharded[V]) Trim(ctx context.Context, severity TrimSeverity) {
	for _, s := range c.shards {
		s.Trim(ctx, severity)
	}
}

// Count returns number of entries in all shards.
func (c *Sharded[V]) Count() int {
	n := 0

	for _, s := range c.shards {
		n += s.Count()
	}

	return n
}

// SizeInBytes returns accounted size of entries in all shards.
func (c *Sharded[V]) SizeInBytes() int64 {
	var n int64

	for _, s := range c.shards {
		n += s.SizeInBytes()
	}

	return n
}

// Shards returns number of shards.
func (c *Sharded[V]) Shards() int {
	return len(c.shards)
}
