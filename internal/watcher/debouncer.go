package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// debouncer coalesces rapid events for the same path within a settling
// window. A batch is emitted only after the window passes with no new events.
// Events for the same path merge according to these rules:
//   - ADD + CHANGE = ADD (still a new file to downstream consumers)
//   - ADD + REMOVE = nothing (the file never settled into existence)
//   - CHANGE + REMOVE = REMOVE
//   - REMOVE + ADD = CHANGE (the file was replaced)
type debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]*pendingEvent
	output  chan []Event
	timer   *time.Timer
	stopped bool
}

type pendingEvent struct {
	event   Event
	firstOp Op
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []Event, 10),
	}
}

// add records an event, merging it with any pending event for the same path,
// and re-arms the settle timer.
func (d *debouncer) add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.pending[event.Path]; ok {
		merged := coalesce(existing, event)
		if merged == nil {
			delete(d.pending, event.Path)
		} else {
			existing.event = *merged
		}
	} else {
		d.pending[event.Path] = &pendingEvent{event: event, firstOp: event.Op}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// coalesce merges a new event into the pending one. A nil result means the
// pair cancels out and the path drops from the batch.
func coalesce(existing *pendingEvent, next Event) *Event {
	switch existing.firstOp {
	case OpAdd:
		switch next.Op {
		case OpChange:
			return &existing.event
		case OpRemove:
			return nil
		}
	case OpRemove:
		if next.Op == OpAdd {
			merged := next
			merged.Op = OpChange
			return &merged
		}
	}
	return &next
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]Event, 0, len(d.pending))
	for _, pe := range d.pending {
		batch = append(batch, pe.event)
	}
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.output <- batch:
	default:
		slog.Warn("debouncer output full, dropping batch", "batch_size", len(batch))
	}
}

// Output returns the channel of settled event batches.
func (d *debouncer) Output() <-chan []Event {
	return d.output
}

// stop halts the debouncer and closes its output. Safe to call twice.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
