// Package mirror is the durable projection of the index: one content object
// per indexed path plus a single JSON manifest of per-file metadata.
package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio"

	"github.com/mirrordex/mirrordex/internal/pathguard"
)

// SnapshotSuffix tags every content object so stray files in the mirror tree
// are never mistaken for indexed content.
const SnapshotSuffix = ".snapshot"

const manifestName = "manifest.json"

// ErrNotFound indicates a read of a content object that does not exist.
// Callers treat absence as "not yet indexed".
var ErrNotFound = errors.New("mirror: content object not found")

// ManifestEntry is the persisted metadata for one indexed path. Content is
// deliberately excluded; it lives in the per-path content object.
type ManifestEntry struct {
	Language     string    `json:"language"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Mirror persists content objects and the manifest under a project-scoped
// storage directory.
type Mirror struct {
	dir          string
	contentDir   string
	manifestPath string
}

// Open prepares the storage directory, creating it if needed.
func Open(storageDir string) (*Mirror, error) {
	m := &Mirror{
		dir:          storageDir,
		contentDir:   filepath.Join(storageDir, "mirror"),
		manifestPath: filepath.Join(storageDir, manifestName),
	}
	if err := os.MkdirAll(m.contentDir, 0o755); err != nil {
		return nil, fmt.Errorf("create mirror directory: %w", err)
	}
	return m, nil
}

// contentPath maps a relative index key to its on-disk content object,
// re-validating the key so a corrupted manifest can never write outside the
// mirror tree.
func (m *Mirror) contentPath(relPath string) (string, error) {
	abs, err := pathguard.Resolve(m.contentDir, relPath)
	if err != nil {
		return "", err
	}
	return abs + SnapshotSuffix, nil
}

// WriteContent writes the content object for relPath, creating parent
// directories as needed and overwriting unconditionally.
func (m *Mirror) WriteContent(relPath string, content []byte) error {
	target, err := m.contentPath(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create content parent: %w", err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("write content object: %w", err)
	}
	return nil
}

// ReadContent returns the bytes of the content object for relPath, or
// ErrNotFound when it does not exist.
func (m *Mirror) ReadContent(relPath string) ([]byte, error) {
	target, err := m.contentPath(relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return nil, fmt.Errorf("read content object: %w", err)
	}
	return data, nil
}

// DeleteContent removes the content object for relPath. Absence is not an
// error.
func (m *Mirror) DeleteContent(relPath string) error {
	target, err := m.contentPath(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete content object: %w", err)
	}
	return nil
}

// WriteManifest atomically replaces the manifest with the given entries.
// The write is full-replace, never a patch, so a crash can only leave the
// previous complete manifest or the new complete manifest on disk.
func (m *Mirror) WriteManifest(entries map[string]ManifestEntry) error {
	if entries == nil {
		entries = map[string]ManifestEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := renameio.WriteFile(m.manifestPath, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest returns the persisted manifest entries, or an empty map on
// first run.
func (m *Mirror) ReadManifest() (map[string]ManifestEntry, error) {
	data, err := os.ReadFile(m.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ManifestEntry{}, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	entries := map[string]ManifestEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return entries, nil
}

// ContentPaths walks the mirror tree and returns the relative index key of
// every content object found, in lexical walk order.
func (m *Mirror) ContentPaths() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(m.contentDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(m.contentDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if key, found := cutSnapshotSuffix(rel); found {
			paths = append(paths, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk mirror tree: %w", err)
	}
	return paths, nil
}

// Clear deletes every content object and resets the manifest to empty. Used
// before a fresh full scan so stale entries from a previous project state
// cannot survive.
func (m *Mirror) Clear() error {
	if err := os.RemoveAll(m.contentDir); err != nil {
		return fmt.Errorf("clear mirror tree: %w", err)
	}
	if err := os.MkdirAll(m.contentDir, 0o755); err != nil {
		return fmt.Errorf("recreate mirror directory: %w", err)
	}
	return m.WriteManifest(nil)
}

// Dir returns the storage directory this mirror persists under.
func (m *Mirror) Dir() string {
	return m.dir
}

func cutSnapshotSuffix(p string) (string, bool) {
	if len(p) <= len(SnapshotSuffix) {
		return "", false
	}
	if p[len(p)-len(SnapshotSuffix):] != SnapshotSuffix {
		return "", false
	}
	return p[:len(p)-len(SnapshotSuffix)], true
}
