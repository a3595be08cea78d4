package cache

import (
	"context"

	"github.com/bool64/stats"
	"github.com/vearutop/rccache/ref"
)

// Tracker observes cache usage.
type Tracker[K any] interface {
	OnCacheHit(ctx context.Context, key K)
	OnCacheMiss(ctx context.Context)
	OnCachePut(ctx context.Context)
}

// Instrumented reports cache hits, misses and puts to Tracker.
type Instrumented[K comparable, V any] struct {
	delegate Cache[K, V]
	tracker  Tracker[K]
}

var (
	_ Cache[string, []byte] = &Instrumented[string, []byte]{}
	_ Trimmable             = &Instrumented[string, []byte]{}
)

// NewInstrumented wraps cache with tracker.
func NewInstrumented[K comparable, V any](delegate Cache[K, V], tracker Tracker[K]) *Instrumented[K, V] {
	return &Instrumented[K, V]{
		delegate: delegate,
		tracker:  tracker,
	}
}

// Delegate returns wrapped cache.
func (c *Instrumented[K, V]) Delegate() Cache[K, V] {
	return c.delegate
}

// Get reads value and reports hit or miss.
func (c *Instrumented[K, V]) Get(ctx context.Context, key K) (*ref.Handle[V], bool) {
	h, found := c.delegate.Get(ctx, key)
	if !found {
		c.tracker.OnCacheMiss(ctx)
	} else {
		c.tracker.OnCacheHit(ctx, key)
	}

	return h, found
}

// Cache reports put and stores value.
func (c *Instrumented[K, V]) Cache(ctx context.Context, key K, h *ref.Handle[V]) (*ref.Handle[V], error) {
	c.tracker.OnCachePut(ctx)

	return c.delegate.Cache(ctx, key, h)
}

// RemoveAll removes matching entries.
func (c *Instrumented[K, V]) RemoveAll(ctx context.Context, predicate Predicate[K]) (int, error) {
	return c.delegate.RemoveAll(ctx, predicate)
}

// Contains checks if any key matches predicate.
func (c *Instrumented[K, V]) Contains(predicate Predicate[K]) bool {
	return c.delegate.Contains(predicate)
}

// Trim trims delegate if it is Trimmable.
func (c *Instrumented[K, V]) Trim(ctx context.Context, severity TrimSeverity) {
	if t, ok := c.delegate.(Trimmable); ok {
		t.Trim(ctx, severity)
	}
}

// StatsTracker reports cache usage as metrics.
type StatsTracker[K any] struct {
	Stats stats.Tracker
	Name  string
}

// OnCacheHit implements Tracker.
func (t StatsTracker[K]) OnCacheHit(ctx context.Context, _ K) {
	t.Stats.Add(ctx, MetricHit, 1, "name", t.Name)
}

// OnCacheMiss implements Tracker.
func (t StatsTracker[K]) OnCacheMiss(ctx context.Context) {
	t.Stats.Add(ctx, MetricMiss, 1, "name", t.Name)
}

// OnCachePut implements Tracker.
func (t StatsTracker[K]) OnCachePut(ctx context.Context) {
	t.Stats.Add(ctx, MetricPut, 1, "name", t.Name)
}
