package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/vearutop/rccache/ref"
)

// MemoryConfig controls in-memory cache instance.
type MemoryConfig struct {
	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker

	// Name is cache instance name, used in stats and logging.
	Name string

	// ParamsCheckInterval is minimal delay between two queries of ParamsProvider, default 5m.
	// Use -1 to query params only once.
	ParamsCheckInterval time.Duration
}

// entry is a cache entry.
//
// Entry with zero clients is exclusively owned by cache and can be evicted.
// Entry with clients is shared, it stays in cache until all client handles are closed.
type entry[K comparable, V any] struct {
	key     K
	handle  *ref.Handle[V]
	size    int64
	clients int

	// orphan is set when a shared entry is removed from cache.
	orphan bool
	node   *node[*entry[K, V]]
}

var (
	_ Cache[string, []byte] = &Memory[string, []byte]{}
	_ Trimmable             = &Memory[string, []byte]{}
)

// Memory is a bounded in-memory cache of reference counted values.
//
// Cache keeps its own handle for every entry and counts handles given out by Get.
// Entries are evicted oldest inserted first, only while no Get handles are open.
type Memory[K comparable, V any] struct {
	mu    sync.Mutex
	data  map[K]*entry[K, V]
	order queue[*entry[K, V]]

	sizeInBytes    int64
	exclusiveCount int
	exclusiveBytes int64

	params          Params
	paramsProvider  ParamsProvider
	paramsCheckedAt time.Time

	descriptor   ValueDescriptor[V]
	trimStrategy TrimStrategy

	config MemoryConfig
	log    ctxd.Logger
	stat   stats.Tracker
	now    func() time.Time
}

// NewMemory creates an instance of in-memory cache with optional configuration.
//
// Nil descriptor accounts every value as zero bytes, nil trim strategy defaults to SuggestedTrimStrategy.
func NewMemory[K comparable, V any](
	descriptor ValueDescriptor[V],
	trimStrategy TrimStrategy,
	params ParamsProvider,
	cfg ...MemoryConfig,
) (*Memory[K, V], error) {
	config := MemoryConfig{}

	if len(cfg) >= 1 {
		config = cfg[0]
	}

	if config.ParamsCheckInterval == 0 {
		config.ParamsCheckInterval = 5 * time.Minute
	}

	if trimStrategy == nil {
		trimStrategy = SuggestedTrimStrategy{}
	}

	if params == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrInvalidParams)
	}

	p := params.CacheParams()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c := &Memory[K, V]{
		data:           make(map[K]*entry[K, V]),
		params:         p,
		paramsProvider: params,
		descriptor:     descriptor,
		trimStrategy:   trimStrategy,
		config:         config,
		log:            config.Logger,
		stat:           config.Stats,
		now:            time.Now,
	}

	c.paramsCheckedAt = c.now()

	return c, nil
}

// Cache stores value of h under key and returns a new handle owned by the caller.
//
// Previous entry under the same key is removed, its value stays alive while any of
// its handles are open. Cache may exceed its limits while entries are in use.
func (c *Memory[K, V]) Cache(ctx context.Context, key K, h *ref.Handle[V]) (*ref.Handle[V], error) {
	internal := h.CloneOrNil()
	if internal == nil {
		return nil, ErrInvalidHandle
	}

	size := c.sizeOf(internal.Get())
	if size < 0 {
		_ = internal.Close()

		return nil, fmt.Errorf("%w: %d", ErrNegativeSize, size)
	}

	result := internal.Clone()

	c.maybeUpdateParams(ctx)

	var replaced *ref.Handle[V]

	c.mu.Lock()

	if prev, ok := c.data[key]; ok {
		replaced = c.detach(prev)
	}

	e := &entry[K, V]{
		key:    key,
		handle: internal,
		size:   size,
	}
	e.node = c.order.pushToFront(e)
	c.data[key] = e

	c.sizeInBytes += size
	c.exclusiveCount++
	c.exclusiveBytes += size

	evicted := c.evictOverflow(e)

	count, bytes := len(c.data), c.sizeInBytes
	c.mu.Unlock()

	if c.log != nil {
		c.log.Debug(ctx, "wrote to cache", "name", c.config.Name, "key", key, "size", size)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricWrite, 1, "name", c.config.Name)
	}

	if err := replaced.Close(); err != nil && c.log != nil {
		c.log.Error(ctx, "failed to release replaced cache entry",
			"name", c.config.Name, "key", key, "error", err)
	}

	c.closeEvicted(ctx, evicted)
	c.reportSize(ctx, count, bytes)

	return result, nil
}

// Get returns a new handle to cached value, or false on cache miss.
//
// Entry is protected from eviction until returned handle and all of its clones are closed.
func (c *Memory[K, V]) Get(ctx context.Context, key K) (*ref.Handle[V], bool) {
	if SkipRead(ctx) {
		return nil, false
	}

	c.mu.Lock()
	e, found := c.data[key]

	if !found {
		c.mu.Unlock()

		if c.log != nil {
			c.log.Debug(ctx, "cache miss", "name", c.config.Name, "key", key)
		}

		if c.stat != nil {
			c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name)
		}

		return nil, false
	}

	inner := e.handle.Clone()

	if e.clients == 0 {
		c.exclusiveCount--
		c.exclusiveBytes -= e.size
	}

	e.clients++
	c.mu.Unlock()

	if c.stat != nil {
		c.stat.Add(ctx, MetricHit, 1, "name", c.config.Name)
	}

	if c.log != nil {
		c.log.Debug(ctx, "cache hit", "name", c.config.Name, "key", key)
	}

	return ref.Of(inner.Get(), func(V) error {
		return c.releaseClient(e, inner)
	}), true
}

// releaseClient is called when the last clone of a handle given out by Get is closed.
func (c *Memory[K, V]) releaseClient(e *entry[K, V], inner *ref.Handle[V]) error {
	c.mu.Lock()
	e.clients--

	if e.clients == 0 && !e.orphan {
		c.exclusiveCount++
		c.exclusiveBytes += e.size
	}
	c.mu.Unlock()

	return inner.Close()
}

// RemoveAll removes entries with keys matching predicate and returns their count.
//
// Predicate is called under cache lock and must not use the cache.
// Failures of release functions are joined, all matched entries are removed anyway.
func (c *Memory[K, V]) RemoveAll(ctx context.Context, predicate Predicate[K]) (int, error) {
	var removed []*ref.Handle[V]

	c.mu.Lock()
	c.order.each(func(n *node[*entry[K, V]]) bool {
		if predicate(n.value.key) {
			removed = append(removed, c.detach(n.value))
		}

		return true
	})

	count, bytes := len(c.data), c.sizeInBytes
	c.mu.Unlock()

	var errs []error

	for _, h := range removed {
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.log != nil && len(removed) > 0 {
		c.log.Debug(ctx, "removed cache entries", "name", c.config.Name, "count", len(removed))
	}

	c.reportSize(ctx, count, bytes)

	return len(removed), errors.Join(errs...)
}

// Contains checks if any key matches predicate, predicate must not use the cache.
func (c *Memory[K, V]) Contains(predicate Predicate[K]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.data {
		if predicate(k) {
			return true
		}
	}

	return false
}

// Clear removes all entries.
func (c *Memory[K, V]) Clear(ctx context.Context) (int, error) {
	return c.RemoveAll(ctx, AnyKey[K])
}

// Count returns number of entries in cache, including shared ones.
func (c *Memory[K, V]) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.data)
}

// SizeInBytes returns accounted size of all entries.
func (c *Memory[K, V]) SizeInBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sizeInBytes
}

// ExclusiveCount returns number of entries that can be evicted.
func (c *Memory[K, V]) ExclusiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exclusiveCount
}

// ExclusiveSizeInBytes returns accounted size of entries that can be evicted.
func (c *Memory[K, V]) ExclusiveSizeInBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exclusiveBytes
}

// InUseCount returns number of entries with open Get handles.
func (c *Memory[K, V]) InUseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.data) - c.exclusiveCount
}

// InUseSizeInBytes returns accounted size of entries with open Get handles.
func (c *Memory[K, V]) InUseSizeInBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sizeInBytes - c.exclusiveBytes
}

// Keys returns cached keys from oldest to newest inserted.
func (c *Memory[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.data))

	c.order.each(func(n *node[*entry[K, V]]) bool {
		keys = append(keys, n.value.key)

		return true
	})

	return keys
}

// Params returns parameters in effect.
func (c *Memory[K, V]) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.params
}

func (c *Memory[K, V]) sizeOf(v V) int64 {
	if c.descriptor == nil {
		return 0
	}

	return c.descriptor.SizeInBytes(v)
}

// detach removes entry from cache and returns its handle to be closed out of lock.
func (c *Memory[K, V]) detach(e *entry[K, V]) *ref.Handle[V] {
	delete(c.data, e.key)
	c.order.remove(e.node)
	e.node = nil

	c.sizeInBytes -= e.size

	if e.clients == 0 {
		c.exclusiveCount--
		c.exclusiveBytes -= e.size
	} else {
		e.orphan = true
	}

	return e.handle
}

func (c *Memory[K, V]) maybeUpdateParams(ctx context.Context) {
	if c.config.ParamsCheckInterval < 0 {
		return
	}

	c.mu.Lock()
	now := c.now()
	due := now.Sub(c.paramsCheckedAt) >= c.config.ParamsCheckInterval

	if due {
		c.paramsCheckedAt = now
	}
	c.mu.Unlock()

	if !due {
		return
	}

	p := c.paramsProvider.CacheParams()

	if err := p.Validate(); err != nil {
		if c.log != nil {
			c.log.Warn(ctx, "ignoring cache params", "name", c.config.Name, "error", err)
		}

		return
	}

	c.mu.Lock()
	c.params = p
	c.mu.Unlock()
}

func (c *Memory[K, V]) reportSize(ctx context.Context, count int, bytes int64) {
	if c.stat != nil {
		c.stat.Set(ctx, MetricItems, float64(count), "name", c.config.Name)
		c.stat.Set(ctx, MetricBytes, float64(bytes), "name", c.config.Name)
	}
}
