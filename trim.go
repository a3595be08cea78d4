package cache

import (
	"math"
	"strconv"
)

// TrimSeverity describes memory pressure that triggered a trim request.
type TrimSeverity int

// Trim severities, from mild to severe.
const (
	// TrimOnCloseToHeapLimit is sent when process heap approaches its limit.
	TrimOnCloseToHeapLimit TrimSeverity = iota

	// TrimOnSystemLowMemoryForeground is sent on system low memory while host is active.
	TrimOnSystemLowMemoryForeground

	// TrimOnSystemLowMemoryBackground is sent on system low memory while host is idle.
	TrimOnSystemLowMemoryBackground

	// TrimOnBackgrounded is sent when host becomes idle.
	TrimOnBackgrounded
)

// SuggestedRatio returns a fraction of cached content that is suggested to be trimmed.
func (s TrimSeverity) SuggestedRatio() float64 {
	switch s {
	case TrimOnCloseToHeapLimit, TrimOnSystemLowMemoryForeground:
		return 0.5
	case TrimOnSystemLowMemoryBackground, TrimOnBackgrounded:
		return 1
	default:
		return 0
	}
}

// String returns severity name.
func (s TrimSeverity) String() string {
	switch s {
	case TrimOnCloseToHeapLimit:
		return "close_to_heap_limit"
	case TrimOnSystemLowMemoryForeground:
		return "system_low_memory_foreground"
	case TrimOnSystemLowMemoryBackground:
		return "system_low_memory_background"
	case TrimOnBackgrounded:
		return "backgrounded"
	default:
		return "trim_severity(" + strconv.Itoa(int(s)) + ")"
	}
}

// TrimStrategy decides which fraction of cached content to evict.
type TrimStrategy interface {
	// TrimRatio returns value in [0, 1], values out of bounds are clamped.
	TrimRatio(severity TrimSeverity) float64
}

// TrimRatioFunc implements TrimStrategy.
type TrimRatioFunc func(severity TrimSeverity) float64

// TrimRatio implements TrimStrategy.
func (f TrimRatioFunc) TrimRatio(severity TrimSeverity) float64 {
	return f(severity)
}

// SuggestedTrimStrategy trims by TrimSeverity.SuggestedRatio.
type SuggestedTrimStrategy struct{}

// TrimRatio implements TrimStrategy.
func (SuggestedTrimStrategy) TrimRatio(severity TrimSeverity) float64 {
	return severity.SuggestedRatio()
}

// FixedTrimRatio trims the same fraction regardless of severity.
type FixedTrimRatio float64

// TrimRatio implements TrimStrategy.
func (r FixedTrimRatio) TrimRatio(TrimSeverity) float64 {
	return float64(r)
}

func clampRatio(r float64) float64 {
	switch {
	case math.IsNaN(r) || r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
