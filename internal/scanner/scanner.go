// Package scanner performs the full enumeration of a project tree, streaming
// accepted file records over a channel while a worker pool reads contents
// concurrently.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/mirrordex/mirrordex/internal/ignore"
	"github.com/mirrordex/mirrordex/internal/index"
	"github.com/mirrordex/mirrordex/internal/language"
	"github.com/mirrordex/mirrordex/internal/pathguard"
)

// resultBuffer keeps workers from stalling while the consumer persists
// records.
const resultBuffer = 64

// Options tunes a Scanner beyond its required inputs.
type Options struct {
	// MaxFileSize caps indexed file size in bytes (0 = index.DefaultMaxFileSize).
	MaxFileSize int64

	// Include restricts the scan to paths matching these globs (empty = all).
	Include []string

	// Workers is the size of the file-reading pool (0 = GOMAXPROCS).
	Workers int

	// Logger receives per-file skip diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Result is one element of the scan stream: either an accepted record or a
// fatal enumeration error. A Result with Err set is always the final element.
type Result struct {
	Record *index.FileRecord
	Err    error
}

// Scanner enumerates a project root and reads every acceptable file.
type Scanner struct {
	root    string
	policy  *ignore.Policy
	maxSize int64
	include []string
	workers int
	log     *slog.Logger
}

// New creates a Scanner rooted at root. The policy decides which paths are
// excluded before any content is read.
func New(root string, policy *ignore.Policy, opts Options) *Scanner {
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = index.DefaultMaxFileSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{
		root:    root,
		policy:  policy,
		maxSize: maxSize,
		include: opts.Include,
		workers: workers,
		log:     log,
	}
}

// Scan walks the tree and streams results. Directory enumeration failures
// terminate the stream with a Result carrying the error; unreadable or
// unacceptable individual files are skipped and logged, never fatal. The
// channel is closed once the walk and all readers finish.
func (s *Scanner) Scan(ctx context.Context) <-chan Result {
	results := make(chan Result, resultBuffer)

	go func() {
		defer close(results)

		candidates := make(chan string, resultBuffer)
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			defer close(candidates)
			return s.enumerate(gctx, candidates)
		})

		for i := 0; i < s.workers; i++ {
			g.Go(func() error {
				for rel := range candidates {
					if rec := s.read(rel); rec != nil {
						select {
						case results <- Result{Record: rec}:
						case <-gctx.Done():
							return gctx.Err()
						}
					}
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			// A consumer that cancelled ctx may no longer be receiving.
			select {
			case results <- Result{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return results
}

// enumerate walks the root, applying the exclusion policy to directories and
// files, and feeds surviving relative paths to the reader pool.
func (s *Scanner) enumerate(ctx context.Context, candidates chan<- string) error {
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("enumerate %s: %w", p, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p == s.root {
			return nil
		}

		rel, rerr := pathguard.Relativize(s.root, p)
		if rerr != nil {
			s.log.Warn("skipping unrepresentable path", "path", p, "error", rerr)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if s.policy.ExcludeDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if s.policy.ExcludeFile(rel) {
			return nil
		}
		if !s.included(rel) {
			return nil
		}

		select {
		case candidates <- rel:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

// read loads one candidate file and applies the shared acceptance predicate.
// Any failure is a skip: the file may have vanished or changed since
// enumeration, and a scan must survive that.
func (s *Scanner) read(rel string) *index.FileRecord {
	abs, err := pathguard.Resolve(s.root, rel)
	if err != nil {
		s.log.Warn("skipping unsafe path", "path", rel, "error", err)
		return nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		s.log.Debug("skipping unreadable file", "path", rel, "error", err)
		return nil
	}
	// Cheap pre-check before reading potentially huge files into memory.
	if info.Size() > s.maxSize {
		s.log.Debug("skipping oversized file", "path", rel, "size", info.Size())
		return nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		s.log.Debug("skipping unreadable file", "path", rel, "error", err)
		return nil
	}
	if err := index.Acceptable(content, s.maxSize); err != nil {
		s.log.Debug("skipping file", "path", rel, "reason", err)
		return nil
	}

	return &index.FileRecord{
		RelPath:  rel,
		AbsPath:  abs,
		Content:  string(content),
		Language: language.Detect(rel),
		Size:     int64(len(content)),
		ModTime:  info.ModTime(),
	}
}

// included applies the optional include globs. With no globs configured,
// everything passes.
func (s *Scanner) included(rel string) bool {
	if len(s.include) == 0 {
		return true
	}
	for _, pattern := range s.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
