// rccache is an interactive demo host for the reference counted cache.
//
// Usage:
//
//	rccache [options]
//
// Options:
//
//	-p, --params        JSONC file with cache params (default: derived from host memory)
//	    --max-bytes     Override max total bytes
//	    --max-entries   Override max entries
//	    --reclaim       Leaked handles reclamation: finalizer or phantom (default: finalizer)
//	    --heap-limit    Heap in use soft limit to trim cache, 0 disables (default: 0)
//	-v, --verbose       Enable debug logging (default: warnings and errors only)
//
// Commands (in REPL):
//
//	put <key> [size]      Cache a new blob of size bytes
//	get <key>             Read blob and close the handle
//	hold <key>            Read blob and keep the handle open
//	release [key]         Close held handles
//	leak <key>            Read blob and forget the handle
//	remove <key>          Remove entry
//	contains <key>        Check entry
//	clear                 Remove all entries
//	trim <severity>       Trim cache: heap, foreground, background, backgrounded
//	keys                  List keys from oldest to newest
//	stats                 Show cache stats
//	gc                    Run garbage collection to reclaim leaked handles
//	help                  Show this help
//	exit / quit / q       Exit
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"
	"github.com/vearutop/rccache"
	"github.com/vearutop/rccache/ref"
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("rccache", flag.ContinueOnError)

	paramsFile := fs.StringP("params", "p", "", "JSONC file with cache params")
	maxBytes := fs.Int64("max-bytes", 0, "override max total bytes")
	maxEntries := fs.Int("max-entries", 0, "override max entries")
	reclaim := fs.String("reclaim", "finalizer", "leaked handles reclamation: finalizer or phantom")
	heapLimit := fs.Uint64("heap-limit", 0, "heap in use soft limit to trim cache, 0 disables")
	verbose := fs.BoolP("verbose", "v", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}

	switch *reclaim {
	case "finalizer":
		ref.SetReclamation(ref.ReclaimFinalizer)
	case "phantom":
		ref.SetReclamation(ref.ReclaimPhantom)
	default:
		return fmt.Errorf("unknown reclamation %q", *reclaim)
	}

	var provider cache.ParamsProvider = cache.SystemParamsProvider{}

	if *paramsFile != "" {
		p, err := loadParams(*paramsFile)
		if err != nil {
			return err
		}

		provider = p
	}

	provider = overrideParams(provider, *maxBytes, *maxEntries)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}

	logger := newLogger(os.Stderr, level)

	ref.SetUnclosedListener(ref.UnclosedListenerFunc(func(id uint64, trace ref.Trace) {
		fmt.Printf("leaked handle #%d reclaimed\n", id)

		if len(trace) > 0 {
			fmt.Print(trace.String())
		}
	}))

	m, err := cache.NewMemory[cache.SimpleKey, []byte](cache.ByteSlices, nil, provider, cache.MemoryConfig{
		Name:   "blobs",
		Logger: logger,
	})
	if err != nil {
		return err
	}

	w := cache.NewHeapWatcher(m, cache.HeapWatcherConfig{
		HeapInUseSoftLimit: *heapLimit,
		Logger:             logger,
	})
	defer w.Close()

	r := &REPL{
		memory: m,
		cache:  cache.NewInstrumented[cache.SimpleKey, []byte](m, printTracker{}),
		held:   map[cache.SimpleKey][]*ref.Handle[[]byte]{},
	}

	return r.Run()
}

// loadParams reads cache params from JSONC file.
func loadParams(path string) (cache.Params, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is provided by user.
	if err != nil {
		return cache.Params{}, fmt.Errorf("reading params: %w", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return cache.Params{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var p cache.Params

	if err := json.Unmarshal(standardized, &p); err != nil {
		return cache.Params{}, fmt.Errorf("parsing params: %w", err)
	}

	return p, p.Validate()
}

func overrideParams(provider cache.ParamsProvider, maxBytes int64, maxEntries int) cache.ParamsProvider {
	if maxBytes == 0 && maxEntries == 0 {
		return provider
	}

	return cache.ParamsFunc(func() cache.Params {
		p := provider.CacheParams()

		if maxBytes != 0 {
			p.MaxTotalBytes = maxBytes
		}

		if maxEntries != 0 {
			p.MaxEntries = maxEntries
		}

		return p
	})
}
