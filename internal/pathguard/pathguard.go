// Package pathguard validates file paths before they are used as index keys
// or resolved against the project root. Every path entering the index or the
// mirror passes through Normalize or Resolve first.
package pathguard

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// TraversalError indicates a path that escapes the project root or contains
// disallowed characters. It is always fatal to the operation that supplied
// the path and is never silently corrected.
type TraversalError struct {
	Path   string
	Reason string
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("unsafe path %q: %s", e.Path, e.Reason)
}

// Normalize validates a relative path and returns its canonical POSIX form.
// The result never contains ".." segments, leading separators, or control
// characters, and always uses forward slashes.
func Normalize(rel string) (string, error) {
	if rel == "" {
		return "", &TraversalError{Path: rel, Reason: "empty path"}
	}

	for _, r := range rel {
		if r < 0x20 || r == 0x7f {
			return "", &TraversalError{Path: rel, Reason: "control character in path"}
		}
	}

	slashed := filepath.ToSlash(rel)
	if strings.HasPrefix(slashed, "/") {
		return "", &TraversalError{Path: rel, Reason: "absolute path"}
	}
	// Windows-style drive or UNC prefixes are never valid index keys.
	if strings.Contains(slashed, ":") || strings.HasPrefix(slashed, `\\`) {
		return "", &TraversalError{Path: rel, Reason: "non-relative path"}
	}

	cleaned := path.Clean(slashed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &TraversalError{Path: rel, Reason: "path escapes project root"}
	}

	return cleaned, nil
}

// Resolve normalizes rel and joins it onto root, verifying that the resulting
// absolute path stays inside root.
func Resolve(root, rel string) (string, error) {
	cleaned, err := Normalize(rel)
	if err != nil {
		return "", err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	joined := filepath.Join(absRoot, filepath.FromSlash(cleaned))
	if joined != absRoot && !strings.HasPrefix(joined, absRoot+string(filepath.Separator)) {
		return "", &TraversalError{Path: rel, Reason: "path escapes project root"}
	}

	return joined, nil
}

// Relativize converts an absolute path under root to a normalized relative
// index key.
func Relativize(root, abs string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return "", &TraversalError{Path: abs, Reason: "not under project root"}
	}
	return Normalize(rel)
}
