package engine

import (
	"context"

	"github.com/mirrordex/mirrordex/internal/watcher"
)

// StartWatcher begins live index maintenance: filesystem events are
// debounced, filtered, and applied through the same upsert/remove path used
// everywhere else. Starting while already active is a no-op.
func (e *Engine) StartWatcher(ctx context.Context) error {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()

	if e.watcher != nil && e.watcher.Active() {
		return nil
	}

	w := watcher.New(e.root, e.policy, watcher.Options{
		Debounce: e.cfg.DebounceWindow(),
		Logger:   e.log,
	})
	if err := w.Start(ctx); err != nil {
		return err
	}

	e.watcher = w
	e.watchDone = make(chan struct{})
	go e.applyEvents(w, e.watchDone)
	return nil
}

// StopWatcher releases the filesystem subscription. Safe to call when no
// watcher is running.
func (e *Engine) StopWatcher() error {
	e.watchMu.Lock()
	w, done := e.watcher, e.watchDone
	e.watcher, e.watchDone = nil, nil
	e.watchMu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Stop()
	if done != nil {
		<-done
	}
	return err
}

// WatcherActive reports whether live index maintenance is running.
func (e *Engine) WatcherActive() bool {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	return e.watcher != nil && e.watcher.Active()
}

// applyEvents consumes batches until the watcher's channels close. Batches
// arriving during a full scan are dropped: the scan re-reads every file, so
// applying stale events would race its clear-and-rebuild.
func (e *Engine) applyEvents(w *watcher.Watcher, done chan struct{}) {
	defer close(done)
	events, errs := w.Events(), w.Errors()
	for events != nil || errs != nil {
		select {
		case batch, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if e.scanning.Load() {
				e.log.Debug("dropping events during full scan", "count", len(batch))
				continue
			}
			for _, ev := range batch {
				e.applyEvent(ev)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			e.log.Warn("watcher error", "error", err)
		}
	}
}

func (e *Engine) applyEvent(ev watcher.Event) {
	switch ev.Op {
	case watcher.OpAdd, watcher.OpChange:
		if err := e.Upsert(ev.Path); err != nil {
			// Unacceptable or vanished files are a skip, like in a scan.
			e.log.Debug("skipping event", "path", ev.Path, "op", ev.Op.String(), "error", err)
		}
	case watcher.OpRemove:
		// A deleted or renamed directory arrives as one event for the
		// directory path with no per-file events; sweep everything under it.
		if _, ok := e.GetFile(ev.Path); !ok {
			if err := e.RemoveTree(ev.Path); err != nil {
				e.log.Warn("failed to remove indexed subtree", "path", ev.Path, "error", err)
			}
			return
		}
		if err := e.Remove(ev.Path); err != nil {
			e.log.Warn("failed to remove indexed file", "path", ev.Path, "error", err)
		}
	}
}
