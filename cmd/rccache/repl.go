package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/vearutop/rccache"
	"github.com/vearutop/rccache/ref"
)

var commands = []string{
	"put", "get", "hold", "release", "leak", "remove", "contains",
	"clear", "trim", "keys", "stats", "gc", "help", "exit", "quit",
}

var severities = map[string]cache.TrimSeverity{
	"heap":         cache.TrimOnCloseToHeapLimit,
	"foreground":   cache.TrimOnSystemLowMemoryForeground,
	"background":   cache.TrimOnSystemLowMemoryBackground,
	"backgrounded": cache.TrimOnBackgrounded,
}

// printTracker reports cache usage to stdout.
type printTracker struct{}

func (printTracker) OnCacheHit(_ context.Context, key cache.SimpleKey) {
	fmt.Printf("hit %s\n", key)
}

func (printTracker) OnCacheMiss(context.Context) {
	fmt.Println("miss")
}

func (printTracker) OnCachePut(context.Context) {
	fmt.Println("put")
}

// REPL is the interactive command loop.
type REPL struct {
	memory *cache.Memory[cache.SimpleKey, []byte]
	cache  *cache.Instrumented[cache.SimpleKey, []byte]
	held   map[cache.SimpleKey][]*ref.Handle[[]byte]
	liner  *liner.State
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".rccache_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(func(line string) []string {
		var res []string

		for _, c := range commands {
			if strings.HasPrefix(c, strings.ToLower(line)) {
				res = append(res, c)
			}
		}

		return res
	})

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	p := r.memory.Params()
	fmt.Printf("rccache (max_total_bytes=%d, max_entries=%d, reclaim=%s)\n",
		p.MaxTotalBytes, p.MaxEntries, ref.CurrentReclamation())
	fmt.Println("Type 'help' for available commands.")

	defer r.saveHistory()
	defer r.releaseAll()

	ctx := context.Background()

	for {
		line, err := r.liner.Prompt("rccache> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")

				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if cmd == "exit" || cmd == "quit" || cmd == "q" {
			fmt.Println("Bye!")

			return nil
		}

		if err := r.exec(ctx, cmd, args); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func (r *REPL) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		r.printHelp()

		return nil
	case "clear":
		n, err := r.memory.Clear(ctx)
		fmt.Printf("removed %d entries\n", n)

		return err
	case "keys":
		for _, k := range r.memory.Keys() {
			fmt.Println(k)
		}

		return nil
	case "stats":
		r.printStats()

		return nil
	case "gc":
		runtime.GC()
		runtime.GC()

		return nil
	case "release":
		return r.release(args)
	case "trim":
		if len(args) != 1 {
			return errors.New("usage: trim <severity>")
		}

		s, ok := severities[args[0]]
		if !ok {
			return fmt.Errorf("unknown severity %q", args[0])
		}

		r.cache.Trim(ctx, s)
		r.printStats()

		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("unknown command or missing key: %s (type 'help' for commands)", cmd)
	}

	key := cache.SimpleKey(args[0])

	switch cmd {
	case "put":
		return r.put(ctx, key, args[1:])
	case "get", "hold", "leak":
		h, found := r.cache.Get(ctx, key)
		if !found {
			return nil
		}

		fmt.Printf("%s: %d bytes, handle #%d\n", key, len(h.Get()), h.ID())

		switch cmd {
		case "get":
			return h.Close()
		case "hold":
			r.held[key] = append(r.held[key], h)
		}

		return nil
	case "remove":
		n, err := r.cache.RemoveAll(ctx, cache.KeyEquals(key))
		fmt.Printf("removed %d entries\n", n)

		return err
	case "contains":
		fmt.Println(r.cache.Contains(cache.KeyEquals(key)))

		return nil
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
}

func (r *REPL) put(ctx context.Context, key cache.SimpleKey, args []string) error {
	size := 1024

	if len(args) > 0 {
		s, err := strconv.Atoi(args[0])
		if err != nil || s <= 0 {
			return fmt.Errorf("invalid size %q", args[0])
		}

		size = s
	}

	h := ref.Of(make([]byte, size), func(v []byte) error {
		fmt.Printf("released %s (%d bytes)\n", key, len(v))

		return nil
	})

	cached, err := r.cache.Cache(ctx, key, h)
	if err != nil {
		return errors.Join(err, h.Close())
	}

	return ref.CloseAll(h, cached)
}

func (r *REPL) release(args []string) error {
	if len(args) == 0 {
		return r.releaseAll()
	}

	key := cache.SimpleKey(args[0])
	err := ref.CloseAll(r.held[key]...)
	delete(r.held, key)

	return err
}

func (r *REPL) releaseAll() error {
	var errs []error

	for k, handles := range r.held {
		errs = append(errs, ref.CloseAll(handles...))

		delete(r.held, k)
	}

	return errors.Join(errs...)
}

func (r *REPL) printStats() {
	fmt.Printf("entries:   %d (%d bytes)\n", r.memory.Count(), r.memory.SizeInBytes())
	fmt.Printf("exclusive: %d (%d bytes)\n", r.memory.ExclusiveCount(), r.memory.ExclusiveSizeInBytes())
	fmt.Printf("in use:    %d (%d bytes)\n", r.memory.InUseCount(), r.memory.InUseSizeInBytes())
	fmt.Printf("handles:   %d open, %d values alive\n", ref.LiveHandles(), ref.LiveObjects())
}

func (r *REPL) printHelp() {
	fmt.Println(`Commands:
  put <key> [size]      Cache a new blob of size bytes (default 1024)
  get <key>             Read blob and close the handle
  hold <key>            Read blob and keep the handle open
  release [key]         Close held handles
  leak <key>            Read blob and forget the handle
  remove <key>          Remove entry
  contains <key>        Check entry
  clear                 Remove all entries
  trim <severity>       Trim cache: heap, foreground, background, backgrounded
  keys                  List keys from oldest to newest
  stats                 Show cache stats
  gc                    Run garbage collection to reclaim leaked handles
  help                  Show this help
  exit / quit / q       Exit`)
}

// saveHistory persists command history to disk.
func (r *REPL) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}

	f, err := os.Create(path) //nolint:gosec // Path is in user home.
	if err != nil {
		return
	}

	_, _ = r.liner.WriteHistory(f)
	_ = f.Close()
}
