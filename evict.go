package cache

import (
	"context"

	"github.com/vearutop/rccache/ref"
)

// overflow checks cache limits, it must be called with lock held.
func (c *Memory[K, V]) overflow() bool {
	p := c.params

	switch {
	case c.sizeInBytes > p.MaxTotalBytes:
		return true
	case len(c.data) > p.MaxEntries:
		return true
	case p.MaxEvictionQueueBytes > 0 && c.exclusiveBytes > p.MaxEvictionQueueBytes:
		return true
	case p.MaxEvictionQueueEntries > 0 && c.exclusiveCount > p.MaxEvictionQueueEntries:
		return true
	default:
		return false
	}
}

// evictOverflow detaches oldest exclusive entries while limits are exceeded.
//
// Entry keep is never evicted, so that a single oversized entry stays in cache.
// It must be called with lock held, returned handles must be closed after unlock.
func (c *Memory[K, V]) evictOverflow(keep *entry[K, V]) []*ref.Handle[V] {
	var evicted []*ref.Handle[V]

	c.order.each(func(n *node[*entry[K, V]]) bool {
		if !c.overflow() {
			return false
		}

		e := n.value
		if e == keep || e.clients > 0 {
			return true
		}

		evicted = append(evicted, c.detach(e))

		return true
	})

	return evicted
}

// Trim evicts a fraction of cached bytes suggested by trim strategy for severity.
//
// Entries with open Get handles are never evicted. Ratio 1 evicts every idle entry.
func (c *Memory[K, V]) Trim(ctx context.Context, severity TrimSeverity) {
	ratio := clampRatio(c.trimStrategy.TrimRatio(severity))

	var (
		evicted []*ref.Handle[V]
		freed   int64
	)

	c.mu.Lock()
	goal := ratio * float64(c.sizeInBytes)

	if ratio > 0 {
		c.order.each(func(n *node[*entry[K, V]]) bool {
			if ratio < 1 && float64(freed) >= goal {
				return false
			}

			e := n.value
			if e.clients > 0 {
				return true
			}

			freed += e.size
			evicted = append(evicted, c.detach(e))

			return true
		})
	}

	count, bytes := len(c.data), c.sizeInBytes
	c.mu.Unlock()

	if c.log != nil {
		c.log.Debug(ctx, "trimmed cache", "name", c.config.Name,
			"severity", severity.String(), "ratio", ratio, "evicted", len(evicted), "freed", freed)
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricTrim, 1, "name", c.config.Name)
	}

	c.closeEvicted(ctx, evicted)
	c.reportSize(ctx, count, bytes)
}

// closeEvicted closes internal handles of evicted entries, failures are logged.
func (c *Memory[K, V]) closeEvicted(ctx context.Context, evicted []*ref.Handle[V]) {
	if len(evicted) == 0 {
		return
	}

	for _, h := range evicted {
		if err := h.Close(); err != nil && c.log != nil {
			c.log.Error(ctx, "failed to release evicted cache entry",
				"name", c.config.Name, "error", err)
		}
	}

	if c.stat != nil {
		c.stat.Add(ctx, MetricEvict, float64(len(evicted)), "name", c.config.Name)
	}
}
