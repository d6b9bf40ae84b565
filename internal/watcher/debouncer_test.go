package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveBatch(t *testing.T, d *debouncer) []Event {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced batch")
		return nil
	}
}

func TestDebouncerEmitsAfterWindow(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.stop()

	d.add(Event{Path: "a.go", Op: OpChange, Timestamp: time.Now()})

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "a.go", batch[0].Path)
	assert.Equal(t, OpChange, batch[0].Op)
}

func TestDebouncerCoalescing(t *testing.T) {
	tests := []struct {
		name   string
		ops    []Op
		wantOp Op
		want   int
	}{
		{name: "add then change stays add", ops: []Op{OpAdd, OpChange}, wantOp: OpAdd, want: 1},
		{name: "add then remove cancels out", ops: []Op{OpAdd, OpRemove}, want: 0},
		{name: "change then remove becomes remove", ops: []Op{OpChange, OpRemove}, wantOp: OpRemove, want: 1},
		{name: "remove then add becomes change", ops: []Op{OpRemove, OpAdd}, wantOp: OpChange, want: 1},
		{name: "repeated changes collapse", ops: []Op{OpChange, OpChange, OpChange}, wantOp: OpChange, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDebouncer(20 * time.Millisecond)
			defer d.stop()

			for _, op := range tt.ops {
				d.add(Event{Path: "f.go", Op: op, Timestamp: time.Now()})
			}
			// A second path keeps the batch observable even when the first
			// cancels out.
			d.add(Event{Path: "other.go", Op: OpChange, Timestamp: time.Now()})

			batch := receiveBatch(t, d)

			var matched []Event
			for _, ev := range batch {
				if ev.Path == "f.go" {
					matched = append(matched, ev)
				}
			}
			require.Len(t, matched, tt.want)
			if tt.want == 1 {
				assert.Equal(t, tt.wantOp, matched[0].Op)
			}
		})
	}
}

func TestDebouncerWindowResetsOnActivity(t *testing.T) {
	d := newDebouncer(60 * time.Millisecond)
	defer d.stop()

	d.add(Event{Path: "a.go", Op: OpChange, Timestamp: time.Now()})
	time.Sleep(30 * time.Millisecond)
	d.add(Event{Path: "b.go", Op: OpChange, Timestamp: time.Now()})

	// The first event alone has not been flushed yet: activity re-armed the
	// timer, so both arrive in one batch.
	batch := receiveBatch(t, d)
	assert.Len(t, batch, 2)
}

func TestDebouncerStopIsIdempotent(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)
	d.stop()
	d.stop()

	// Adds after stop are discarded without panicking.
	d.add(Event{Path: "a.go", Op: OpAdd, Timestamp: time.Now()})

	_, ok := <-d.Output()
	assert.False(t, ok)
}
