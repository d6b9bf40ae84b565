// Package index holds the in-memory authoritative map from relative path to
// file record, plus the acceptance rules shared by the scanner and watcher.
package index

import (
	"bytes"
	"fmt"
	"time"
)

// DefaultMaxFileSize is the largest file accepted into the index (10 MiB).
// Larger files are almost always generated or binary artifacts.
const DefaultMaxFileSize = 10 * 1024 * 1024

// FileRecord represents one indexed source file.
type FileRecord struct {
	// RelPath is the unique key: POSIX-style, relative to the project root.
	RelPath string

	// AbsPath is derived from the root and RelPath; never persisted.
	AbsPath string

	// Content is the raw UTF-8 text. Binary files are never indexed.
	Content string

	// Language is the tag derived from the file extension.
	Language string

	// Size is the content length in bytes.
	Size int64

	// ModTime is the filesystem timestamp at observation time.
	ModTime time.Time
}

// Acceptance errors. Scanner and watcher treat all of them as
// skip-and-continue, never as fatal.
var (
	ErrFileEmpty    = fmt.Errorf("file is empty")
	ErrFileTooLarge = fmt.Errorf("file exceeds size limit")
	ErrFileBinary   = fmt.Errorf("file contains NUL byte")
)

// Acceptable applies the shared acceptance predicate: size must be positive
// and within maxSize, and the content must not contain a NUL byte. Both the
// scanner and the watcher route every candidate through this single check so
// the two paths can never disagree on what gets indexed.
func Acceptable(content []byte, maxSize int64) error {
	size := int64(len(content))
	if size == 0 {
		return ErrFileEmpty
	}
	if size > maxSize {
		return ErrFileTooLarge
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return ErrFileBinary
	}
	return nil
}
