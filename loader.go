package cache

import (
	"context"
	"sync"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/vearutop/rccache/ref"
)

// LoaderConfig is optional configuration for NewLoader.
type LoaderConfig struct {
	// Name is added to logs and stats.
	Name string

	// Logger collects messages with context.
	Logger ctxd.Logger

	// Stats tracks stats.
	Stats stats.Tracker
}

// BuildFunc creates a new value, loader owns and closes returned handle.
type BuildFunc[V any] func(ctx context.Context) (*ref.Handle[V], error)

// Loader gets values from cache or builds them without concurrent builds of the same key.
//
// Please use NewLoader to create instance.
type Loader[K comparable, V any] struct {
	upstream Cache[K, V]
	lock     sync.Mutex          // Securing keyLocks
	keyLocks map[K]chan struct{} // Preventing build concurrency per key
	config   LoaderConfig
	log      ctxd.Logger
	stat     stats.Tracker
}

// NewLoader creates a Loader on top of upstream cache.
//
// Optional configuration can be provided with LoaderConfig (only first argument is used).
func NewLoader[K comparable, V any](upstream Cache[K, V], cfg ...LoaderConfig) *Loader[K, V] {
	config := LoaderConfig{}
	if len(cfg) >= 1 {
		config = cfg[0]
	}

	l := &Loader[K, V]{}
	l.config = config
	l.upstream = upstream

	l.log = config.Logger
	if l.log == nil {
		l.log = ctxd.NoOpLogger{}
	}

	l.stat = config.Stats
	if l.stat == nil {
		l.stat = stats.NoOp{}
	}

	l.keyLocks = make(map[K]chan struct{})

	return l
}

// Get returns a handle to cached value or to the value built and cached by buildFunc.
//
// Concurrent calls for the same key wait for a single build. Waiting is canceled with context.
// Returned handle is owned by the caller and must be closed.
func (l *Loader[K, V]) Get(ctx context.Context, key K, buildFunc BuildFunc[V]) (*ref.Handle[V], error) {
	for {
		// Checking for value in cache before critical section.
		if h, found := l.upstream.Get(ctx, key); found {
			return h, nil
		}

		// Locking key for build or finding active lock.
		l.lock.Lock()
		keyLock, alreadyLocked := l.keyLocks[key]

		if !alreadyLocked {
			keyLock = make(chan struct{})
			l.keyLocks[key] = keyLock
		}
		l.lock.Unlock()

		if !alreadyLocked {
			return l.buildLocked(ctx, key, keyLock, buildFunc)
		}

		l.log.Debug(ctx, "waiting for cache value", "name", l.config.Name, "key", key)

		// Waiting for value built by keyLock owner, then checking cache again.
		select {
		case <-keyLock:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Loader[K, V]) buildLocked(
	ctx context.Context,
	key K,
	keyLock chan struct{},
	buildFunc BuildFunc[V],
) (*ref.Handle[V], error) {
	// Releasing the lock.
	defer func() {
		l.lock.Lock()
		delete(l.keyLocks, key)
		close(keyLock)
		l.lock.Unlock()
	}()

	// Value could be cached by previous lock owner.
	if h, found := l.upstream.Get(ctx, key); found {
		return h, nil
	}

	return l.doBuild(ctx, key, buildFunc)
}

func (l *Loader[K, V]) doBuild(ctx context.Context, key K, buildFunc BuildFunc[V]) (*ref.Handle[V], error) {
	defer func() {
		l.stat.Add(ctx, MetricBuild, 1, "name", l.config.Name)
	}()
	l.log.Debug(ctx, "building cache value", "name", l.config.Name, "key", key)

	built, err := buildFunc(ctx)
	if err != nil {
		l.stat.Add(ctx, MetricFailed, 1, "name", l.config.Name)

		return nil, err
	}

	h, err := l.upstream.Cache(ctx, key, built)

	if closeErr := built.Close(); closeErr != nil {
		l.log.Error(ctx, "failed to close built value",
			"error", closeErr,
			"key", key,
			"name", l.config.Name)
	}

	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to cache built value", "key", key)
	}

	return h, nil
}
