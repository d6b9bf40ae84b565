// Package engine wires the index store, mirror, scanner, watcher, search and
// verifier into one process-scoped service with an explicit open/close
// lifecycle. All mutation of the store and mirror funnels through here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/mirrordex/mirrordex/internal/config"
	"github.com/mirrordex/mirrordex/internal/ignore"
	"github.com/mirrordex/mirrordex/internal/index"
	"github.com/mirrordex/mirrordex/internal/language"
	"github.com/mirrordex/mirrordex/internal/mirror"
	"github.com/mirrordex/mirrordex/internal/pathguard"
	"github.com/mirrordex/mirrordex/internal/scanner"
	"github.com/mirrordex/mirrordex/internal/search"
	"github.com/mirrordex/mirrordex/internal/verify"
	"github.com/mirrordex/mirrordex/internal/watcher"
)

// ErrScanInProgress is returned when a full scan is requested while one is
// already running. Scans clear all state first, so two can never interleave.
var ErrScanInProgress = errors.New("a full scan is already in progress")

// ErrLocked is returned when another process holds the storage directory.
var ErrLocked = errors.New("storage directory is locked by another process")

// Engine owns the in-memory index and its durable projection for one project
// root.
type Engine struct {
	root string
	cfg  *config.Config
	log  *slog.Logger

	store    *index.Store
	mirror   *mirror.Mirror
	policy   *ignore.Policy
	searcher *search.Engine
	checker  *verify.Checker
	lock     *flock.Flock

	// mu serializes every multi-step store+mirror mutation so the manifest
	// rewrite always reflects a settled store.
	mu       sync.Mutex
	scanning atomic.Bool

	watchMu   sync.Mutex
	watcher   *watcher.Watcher
	watchDone chan struct{}
}

// Open constructs an Engine for root, takes the storage directory lock, and
// hydrates the index from the persisted manifest and mirror. Entries whose
// content object cannot be read are skipped with a warning; Verify will
// report them.
func Open(root string, cfg *config.Config, log *slog.Logger) (*Engine, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}

	storageDir := config.StorageDir(absRoot)
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	lock := flock.New(filepath.Join(storageDir, "lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire storage lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	m, err := mirror.Open(storageDir)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	policy, err := ignore.NewPolicy(absRoot, config.StorageDirName, ignore.Options{
		Patterns:         cfg.Exclude,
		RespectGitignore: cfg.RespectGitignore,
	})
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	store := index.NewStore()
	e := &Engine{
		root:     absRoot,
		cfg:      cfg,
		log:      log,
		store:    store,
		mirror:   m,
		policy:   policy,
		searcher: search.NewEngine(store),
		checker:  verify.NewChecker(store, m),
		lock:     lock,
	}

	if err := e.hydrate(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return e, nil
}

// Close stops the watcher and releases the storage lock.
func (e *Engine) Close() error {
	_ = e.StopWatcher()
	return e.lock.Unlock()
}

// Root returns the absolute project root.
func (e *Engine) Root() string {
	return e.root
}

// hydrate is the cold-start reconciliation path: with no live state, the
// manifest is the only available source of truth, so the store is rebuilt
// from it and the mirror content objects.
func (e *Engine) hydrate() error {
	entries, err := e.mirror.ReadManifest()
	if err != nil {
		return fmt.Errorf("hydrate index: %w", err)
	}

	loaded := 0
	for rel, entry := range entries {
		content, err := e.mirror.ReadContent(rel)
		if err != nil {
			e.log.Warn("skipping manifest entry with unreadable content", "path", rel, "error", err)
			continue
		}
		abs, err := pathguard.Resolve(e.root, rel)
		if err != nil {
			e.log.Warn("skipping manifest entry with unsafe path", "path", rel, "error", err)
			continue
		}
		e.store.Put(&index.FileRecord{
			RelPath:  rel,
			AbsPath:  abs,
			Content:  string(content),
			Language: entry.Language,
			Size:     entry.Size,
			ModTime:  entry.LastModified,
		})
		loaded++
	}
	if len(entries) > 0 {
		e.log.Info("hydrated index from mirror", "entries", len(entries), "loaded", loaded)
	}
	return nil
}

// Scan performs a full re-index: clear everything, enumerate, and persist.
// patterns override the configured include globs when non-empty. Only one
// scan may run at a time; watcher events arriving mid-scan are dropped, the
// scan itself re-reads the files they referred to.
func (e *Engine) Scan(ctx context.Context, patterns []string) (int, error) {
	if !e.scanning.CompareAndSwap(false, true) {
		return 0, ErrScanInProgress
	}
	defer e.scanning.Store(false)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Clear()
	if err := e.mirror.Clear(); err != nil {
		return 0, err
	}

	include := patterns
	if len(include) == 0 {
		include = e.cfg.Include
	}

	s := scanner.New(e.root, e.policy, scanner.Options{
		MaxFileSize: e.cfg.MaxFileSize,
		Include:     include,
		Workers:     e.cfg.Workers,
		Logger:      e.log,
	})

	// The stream must be consumed to completion or the reader pool blocks on
	// its channels forever; on a persistence failure, cancel the scan and
	// drain the remaining results instead of abandoning them.
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	count := 0
	var fatal error
	for res := range s.Scan(scanCtx) {
		if fatal != nil {
			continue
		}
		if res.Err != nil {
			fatal = res.Err
			continue
		}
		e.store.Put(res.Record)
		if err := e.mirror.WriteContent(res.Record.RelPath, []byte(res.Record.Content)); err != nil {
			fatal = err
			cancel()
			continue
		}
		count++
	}

	// Persist the manifest even after a fatal error so the three states
	// stay consistent with whatever was indexed.
	if err := e.writeManifestLocked(); err != nil && fatal == nil {
		fatal = err
	}
	if fatal != nil {
		return count, fmt.Errorf("scan: %w", fatal)
	}

	e.log.Info("scan complete", "indexed", count)
	return count, nil
}

// Search runs a query against the current index.
func (e *Engine) Search(query string, opts search.Options) ([]search.FileMatches, error) {
	return e.searcher.Search(query, opts)
}

// GetFile returns the indexed record for rel, or false when absent or the
// path is invalid.
func (e *Engine) GetFile(rel string) (*index.FileRecord, bool) {
	normalized, err := pathguard.Normalize(rel)
	if err != nil {
		return nil, false
	}
	return e.store.Get(normalized)
}

// All returns a snapshot of every indexed record in insertion order.
func (e *Engine) All() []*index.FileRecord {
	return e.store.All()
}

// Len returns the number of indexed files.
func (e *Engine) Len() int {
	return e.store.Len()
}

// Upsert re-reads rel from disk and replaces (or inserts) its record,
// persisting content and manifest before returning. The watcher and ad-hoc
// single-file updates share this one path.
func (e *Engine) Upsert(rel string) error {
	normalized, err := pathguard.Normalize(rel)
	if err != nil {
		return err
	}
	abs, err := pathguard.Resolve(e.root, normalized)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat %s: %w", normalized, err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %w", normalized, err)
	}
	if err := index.Acceptable(content, e.cfg.MaxFileSize); err != nil {
		return fmt.Errorf("%s: %w", normalized, err)
	}

	rec := &index.FileRecord{
		RelPath:  normalized,
		AbsPath:  abs,
		Content:  string(content),
		Language: language.Detect(normalized),
		Size:     int64(len(content)),
		ModTime:  info.ModTime(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Put(rec)
	if err := e.mirror.WriteContent(normalized, content); err != nil {
		return err
	}
	return e.writeManifestLocked()
}

// Remove drops rel from the index and the mirror. Absence is not an error.
func (e *Engine) Remove(rel string) error {
	normalized, err := pathguard.Normalize(rel)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Remove(normalized)
	if err := e.mirror.DeleteContent(normalized); err != nil {
		return err
	}
	return e.writeManifestLocked()
}

// RemoveTree drops rel and every indexed path under it. Used when a whole
// directory disappears and only the directory itself produced an event.
func (e *Engine) RemoveTree(rel string) error {
	normalized, err := pathguard.Normalize(rel)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prefix := normalized + "/"
	removed := 0
	for _, p := range e.store.Paths() {
		if p != normalized && !strings.HasPrefix(p, prefix) {
			continue
		}
		e.store.Remove(p)
		if err := e.mirror.DeleteContent(p); err != nil {
			return err
		}
		removed++
	}
	if removed == 0 {
		return nil
	}
	return e.writeManifestLocked()
}

// Verify audits three-way consistency without mutating anything.
func (e *Engine) Verify() (*verify.Report, error) {
	return e.checker.Verify()
}

// Repair reconciles divergence. With a populated index, memory wins (the
// live divergence path). With an empty index and a non-empty manifest, the
// manifest is the only source, so the store is re-hydrated first.
func (e *Engine) Repair() (*verify.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store.Len() == 0 {
		if err := e.hydrate(); err != nil {
			return nil, err
		}
	}
	return e.checker.Repair()
}

// writeManifestLocked rewrites the manifest to exactly match the store.
// Callers must hold e.mu.
func (e *Engine) writeManifestLocked() error {
	records := e.store.All()
	entries := make(map[string]mirror.ManifestEntry, len(records))
	for _, rec := range records {
		entries[rec.RelPath] = mirror.ManifestEntry{
			Language:     rec.Language,
			Size:         rec.Size,
			LastModified: rec.ModTime,
		}
	}
	return e.mirror.WriteManifest(entries)
}
