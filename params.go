package cache

import (
	"fmt"
	"math"
	"runtime/debug"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Params defines cache capacity.
type Params struct {
	// MaxTotalBytes is a soft limit of accounted size of all entries.
	MaxTotalBytes int64 `json:"max_total_bytes"`

	// MaxEntries is a soft limit of entries count.
	MaxEntries int `json:"max_entries"`

	// MaxEvictionQueueBytes limits accounted size of exclusively cached entries, 0 disables the limit.
	MaxEvictionQueueBytes int64 `json:"max_eviction_queue_bytes"`

	// MaxEvictionQueueEntries limits count of exclusively cached entries, 0 disables the limit.
	MaxEvictionQueueEntries int `json:"max_eviction_queue_entries"`
}

// ParamsProvider supplies cache parameters, it may be queried again during cache lifetime.
type ParamsProvider interface {
	CacheParams() Params
}

// CacheParams implements ParamsProvider with static parameters.
func (p Params) CacheParams() Params {
	return p
}

// ParamsFunc implements ParamsProvider.
type ParamsFunc func() Params

// CacheParams implements ParamsProvider.
func (f ParamsFunc) CacheParams() Params {
	return f()
}

// Validate checks whether parameters can be applied.
func (p Params) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.MaxTotalBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&p.MaxEntries, validation.Required, validation.Min(1)),
		validation.Field(&p.MaxEvictionQueueBytes, validation.Min(int64(0))),
		validation.Field(&p.MaxEvictionQueueEntries, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	return nil
}

const (
	// DefaultMaxEntries is a default entries count limit of SystemParams.
	DefaultMaxEntries = 256

	mib = 1024 * 1024
)

// SystemParams derives cache parameters from available memory.
//
// Available memory is the smaller of physical memory and Go memory limit,
// zero values are ignored. Small budgets get a fixed cache size, larger ones a quarter.
func SystemParams(totalMemory uint64, memoryLimit int64) Params {
	avail := uint64(math.MaxInt64)

	if totalMemory > 0 && totalMemory < avail {
		avail = totalMemory
	}

	if memoryLimit > 0 && uint64(memoryLimit) < avail {
		avail = uint64(memoryLimit)
	}

	var maxBytes int64

	switch {
	case avail < 32*mib:
		maxBytes = 4 * mib
	case avail < 64*mib:
		maxBytes = 6 * mib
	default:
		maxBytes = int64(avail / 4)
	}

	return Params{
		MaxTotalBytes: maxBytes,
		MaxEntries:    DefaultMaxEntries,
	}
}

// SystemParamsProvider derives parameters from host memory on every query.
type SystemParamsProvider struct{}

// CacheParams implements ParamsProvider.
func (SystemParamsProvider) CacheParams() Params {
	return SystemParams(totalMemory(), debug.SetMemoryLimit(-1))
}
