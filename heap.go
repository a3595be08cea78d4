package cache

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/bool64/ctxd"
)

// HeapWatcherConfig controls heap in use watcher.
type HeapWatcherConfig struct {
	// HeapInUseSoftLimit sets heap in use threshold (in bytes) to trim, 0 disables watcher.
	HeapInUseSoftLimit uint64

	// Interval is delay between two checks of heap in use, default 10s.
	Interval time.Duration

	// Severity is passed to Trimmable when threshold is met, default TrimOnCloseToHeapLimit.
	Severity TrimSeverity

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger
}

// HeapWatcher periodically trims a Trimmable while heap in use is above the limit.
type HeapWatcher struct {
	target    Trimmable
	config    HeapWatcherConfig
	closed    chan struct{}
	closeOnce sync.Once
}

// NewHeapWatcher creates and starts heap watcher.
//
// Watcher must be stopped with Close.
func NewHeapWatcher(target Trimmable, config HeapWatcherConfig) *HeapWatcher {
	if config.Interval == 0 {
		config.Interval = 10 * time.Second
	}

	w := &HeapWatcher{
		target: target,
		config: config,
		closed: make(chan struct{}),
	}

	if config.HeapInUseSoftLimit != 0 {
		go w.run()
	}

	return w
}

func (w *HeapWatcher) run() {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(context.Background())
		case <-w.closed:
			return
		}
	}
}

// Check trims target if heap in use is above the limit, it returns true if trim was requested.
func (w *HeapWatcher) Check(ctx context.Context) bool {
	if w.config.HeapInUseSoftLimit == 0 {
		return false
	}

	runtime.GC()

	m := runtime.MemStats{}
	runtime.ReadMemStats(&m)

	if m.HeapInuse < w.config.HeapInUseSoftLimit {
		return false
	}

	if w.config.Logger != nil {
		w.config.Logger.Info(ctx, "heap in use above soft limit, trimming",
			"heapInUse", m.HeapInuse, "limit", w.config.HeapInUseSoftLimit,
			"severity", w.config.Severity.String())
	}

	w.target.Trim(ctx, w.config.Severity)

	return true
}

// Close stops the watcher.
func (w *HeapWatcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.closed)
	})

	return nil
}
