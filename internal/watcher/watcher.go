package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mirrordex/mirrordex/internal/ignore"
	"github.com/mirrordex/mirrordex/internal/pathguard"
)

// State is the watcher lifecycle phase. Transitions only move forward within
// one session: stopped -> starting -> active -> stopped.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateActive
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Options tunes a Watcher beyond its required inputs.
type Options struct {
	// Debounce is the settling window for coalescing events (default 500ms).
	Debounce time.Duration

	// EventBufferSize is the capacity of the batch channel (default 256).
	EventBufferSize int

	// Logger receives drop and skip diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Watcher subscribes to filesystem notifications for a project root and
// emits debounced batches of policy-filtered events. One session only: after
// Stop, create a new Watcher to observe again.
type Watcher struct {
	root   string
	policy *ignore.Policy
	opts   Options
	log    *slog.Logger

	state  atomic.Int32
	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	deb    *debouncer
	events chan []Event
	errors chan error
	stopCh chan struct{}
}

// New creates a Watcher for root. The policy filters events exactly the way
// the scanner filters paths, so the two can never disagree.
func New(root string, policy *ignore.Policy, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.EventBufferSize <= 0 {
		opts.EventBufferSize = 256
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		root:   root,
		policy: policy,
		opts:   opts,
		log:    log,
	}
}

// State returns the current lifecycle phase.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// Active reports whether the watcher is delivering events.
func (w *Watcher) Active() bool {
	return w.State() == StateActive
}

// Start subscribes to the filesystem and begins delivering batches. Calling
// Start while already starting or active is a no-op. A subscription failure
// leaves the watcher stopped and returns the error.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.state.Store(int32(StateStopped))
		return fmt.Errorf("create filesystem subscription: %w", err)
	}

	if err := w.subscribeTree(fsw); err != nil {
		_ = fsw.Close()
		w.state.Store(int32(StateStopped))
		return fmt.Errorf("subscribe to %s: %w", w.root, err)
	}

	w.fsw = fsw
	w.deb = newDebouncer(w.opts.Debounce)
	w.events = make(chan []Event, w.opts.EventBufferSize)
	w.errors = make(chan error, 10)
	w.stopCh = make(chan struct{})

	go w.run(ctx)
	go w.forward()

	w.state.Store(int32(StateActive))
	return nil
}

// Stop tears down the subscription and closes the event channels. Safe to
// call in any state, any number of times; only an active watcher has
// anything to release.
func (w *Watcher) Stop() error {
	if !w.state.CompareAndSwap(int32(StateActive), int32(StateStopped)) {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	close(w.stopCh)
	err := w.fsw.Close()
	w.deb.stop()
	close(w.events)
	close(w.errors)
	return err
}

// Events returns the channel of debounced event batches. Nil before the
// first Start.
func (w *Watcher) Events() <-chan []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.events
}

// Errors returns the channel of non-fatal watcher errors. Nil before the
// first Start.
func (w *Watcher) Errors() <-chan error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errors
}

// subscribeTree registers every non-excluded directory under the root.
// fsnotify has no recursive mode, so each directory is added individually.
func (w *Watcher) subscribeTree(fsw *fsnotify.Watcher) error {
	return filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == w.root {
				return err
			}
			w.log.Warn("skipping unreadable directory", "path", p, "error", err)
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root {
			rel, rerr := pathguard.Relativize(w.root, p)
			if rerr != nil || w.policy.ExcludeDir(rel) {
				return fs.SkipDir
			}
		}
		return fsw.Add(p)
	})
}

// run translates raw fsnotify events into debounced domain events until the
// subscription closes or the watcher stops.
func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.emitError(err)
		}
	}
}

// forward moves settled batches from the debouncer to the public channel.
func (w *Watcher) forward() {
	for {
		select {
		case <-w.stopCh:
			return
		case batch, ok := <-w.deb.Output():
			if !ok {
				return
			}
			w.emitBatch(batch)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := pathguard.Relativize(w.root, event.Name)
	if err != nil {
		return
	}

	isDir := false
	if info, serr := os.Stat(event.Name); serr == nil {
		isDir = info.IsDir()
	}

	if isDir {
		if event.Op&fsnotify.Create != 0 && !w.policy.ExcludeDir(rel) {
			// New subtrees need their own subscriptions.
			if err := w.fsw.Add(event.Name); err != nil {
				w.emitError(fmt.Errorf("subscribe to new directory %s: %w", rel, err))
			}
		}
		return
	}

	// Changed ignore rules must take effect for every later event.
	if filepath.Base(event.Name) == ".gitignore" {
		w.policy.Reload()
	}

	if w.policy.ExcludeFile(rel) {
		return
	}

	var op Op
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpAdd
	case event.Op&fsnotify.Write != 0:
		op = OpChange
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		// The path is already gone, so a removed directory cannot be told
		// apart from a removed file here; consumers treat a remove for an
		// unindexed path as a subtree removal.
		op = OpRemove
	default:
		// Chmod and other metadata-only events never affect the index.
		return
	}

	w.deb.add(Event{Path: rel, Op: op, Timestamp: time.Now()})
}

// emitBatch and emitError hold the lifecycle mutex so a concurrent Stop can
// never close the channel mid-send.
func (w *Watcher) emitBatch(batch []Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(batch) == 0 || !w.Active() {
		return
	}
	select {
	case w.events <- batch:
	default:
		w.log.Warn("event buffer full, dropping batch", "batch_size", len(batch))
	}
}

func (w *Watcher) emitError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.Active() {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}
