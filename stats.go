package cache

// Metric names reported to stats.Tracker, labelled with cache name.
const (
	MetricHit   = "cache_hit"
	MetricMiss  = "cache_miss"
	MetricWrite = "cache_write"
	MetricPut   = "cache_put"
	MetricEvict = "cache_evict"
	MetricTrim  = "cache_trim"
	MetricItems = "cache_items"
	MetricBytes = "cache_bytes"

	MetricBuild  = "cache_build"
	MetricFailed = "cache_build_failed"
)
