package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Trimmer is a registry of trimmables that are trimmed together on memory pressure.
type Trimmer struct {
	sync.Mutex

	// SkipInterval defines minimal duration between two trims of the same or lower severity (flood protection).
	SkipInterval time.Duration

	// Trimmables contains a list of caches to trim.
	Trimmables []Trimmable

	lastRun      time.Time
	lastSeverity TrimSeverity
}

// Register adds trimmable to registry.
func (t *Trimmer) Register(tr Trimmable) {
	t.Lock()
	defer t.Unlock()

	t.Trimmables = append(t.Trimmables, tr)
}

// Unregister removes trimmable from registry, trimmable must be comparable.
func (t *Trimmer) Unregister(tr Trimmable) {
	t.Lock()
	defer t.Unlock()

	for i, r := range t.Trimmables {
		if r == tr {
			t.Trimmables = append(t.Trimmables[:i], t.Trimmables[i+1:]...)

			return
		}
	}
}

// Trim trims all registered trimmables.
//
// Trim is skipped with ErrAlreadyTrimmed if previous trim was recent and not less severe.
func (t *Trimmer) Trim(ctx context.Context, severity TrimSeverity) error {
	t.Lock()
	defer t.Unlock()

	if len(t.Trimmables) == 0 {
		return ErrNothingToTrim
	}

	if t.SkipInterval == 0 {
		t.SkipInterval = 15 * time.Second
	}

	if !t.lastRun.IsZero() && time.Since(t.lastRun) < t.SkipInterval && severity <= t.lastSeverity {
		return fmt.Errorf("%w with %s at %s, %s did not pass",
			ErrAlreadyTrimmed, t.lastSeverity, t.lastRun.String(), t.SkipInterval.String())
	}

	t.lastRun = time.Now()
	t.lastSeverity = severity

	for _, tr := range t.Trimmables {
		tr.Trim(ctx, severity)
	}

	return nil
}
