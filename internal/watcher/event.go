// Package watcher observes a project tree through fsnotify and emits
// debounced, policy-filtered batches of file events.
package watcher

import "time"

// Op is the kind of change observed for a path.
type Op int

const (
	// OpAdd indicates a file appeared.
	OpAdd Op = iota
	// OpChange indicates an existing file's content changed.
	OpChange
	// OpRemove indicates a file disappeared.
	OpRemove
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "ADD"
	case OpChange:
		return "CHANGE"
	case OpRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// Event is one observed change, keyed by the path relative to the watched
// root.
type Event struct {
	// Path is slash-separated and relative to the watched root.
	Path string

	// Op is the coalesced operation for this path.
	Op Op

	// Timestamp is when the change was first observed.
	Timestamp time.Time
}
