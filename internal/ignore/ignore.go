// Package ignore resolves the effective exclusion set applied before a path
// is indexed: built-in defaults, the project's .gitignore chain, and
// user-configured glob patterns.
package ignore

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
	lru "github.com/hashicorp/golang-lru/v2"
)

// matcherCacheSize bounds the number of cached per-directory gitignore
// matchers in long-running watch sessions.
const matcherCacheSize = 1000

// Options configures a Policy beyond the built-in defaults.
type Options struct {
	// Patterns are user-supplied glob patterns (doublestar syntax).
	Patterns []string

	// RespectGitignore enables .gitignore parsing (root and nested files).
	RespectGitignore bool
}

// Policy decides whether a path is excluded from indexing. It is a pure
// function of its inputs apart from the gitignore matcher cache.
type Policy struct {
	root       string
	storageDir string
	patterns   []string
	useGit     bool
	cache      *lru.Cache[string, gitignore.GitIgnore]
}

// NewPolicy creates a Policy rooted at root. storageDirName is the tool's own
// storage directory, which is always excluded.
func NewPolicy(root, storageDirName string, opts Options) (*Policy, error) {
	cache, err := lru.New[string, gitignore.GitIgnore](matcherCacheSize)
	if err != nil {
		return nil, err
	}
	return &Policy{
		root:       root,
		storageDir: storageDirName,
		patterns:   opts.Patterns,
		useGit:     opts.RespectGitignore,
		cache:      cache,
	}, nil
}

// ExcludeDir reports whether a directory (and everything under it) should be
// skipped. rel is slash-separated and relative to the project root.
func (p *Policy) ExcludeDir(rel string) bool {
	rel = path.Clean(filepath.ToSlash(rel))
	if rel == "." || rel == "" {
		return false
	}

	if rel == p.storageDir || strings.HasPrefix(rel, p.storageDir+"/") {
		return true
	}

	for _, part := range strings.Split(rel, "/") {
		for _, name := range defaultExcludeDirs {
			if part == name {
				return true
			}
		}
	}

	if p.matchesUserPattern(rel) {
		return true
	}

	if p.useGit && p.gitignored(rel, true) {
		return true
	}

	return false
}

// ExcludeFile reports whether a file should be dropped before indexing.
func (p *Policy) ExcludeFile(rel string) bool {
	rel = path.Clean(filepath.ToSlash(rel))
	base := path.Base(rel)

	for _, pattern := range sensitiveFilePatterns {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}

	for _, pattern := range defaultExcludeFiles {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}

	if p.matchesUserPattern(rel) {
		return true
	}

	if p.useGit && p.gitignored(rel, false) {
		return true
	}

	return false
}

// Reload drops all cached gitignore matchers so changed .gitignore files are
// re-read on the next match.
func (p *Policy) Reload() {
	p.cache.Purge()
}

// matchesUserPattern checks the configured glob patterns against the relative
// path, its basename, and (for "dir/**" style patterns) the directory itself.
func (p *Policy) matchesUserPattern(rel string) bool {
	base := path.Base(rel)
	for _, pattern := range p.patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(pattern, base); ok {
				return true
			}
		}
		if trimmed, found := strings.CutSuffix(pattern, "/**"); found {
			if ok, _ := doublestar.Match(trimmed, rel); ok {
				return true
			}
		}
	}
	return false
}

// gitignored walks the .gitignore chain from the root down to the path's
// parent directory, mirroring git's nearest-file-wins evaluation order.
func (p *Policy) gitignored(rel string, isDir bool) bool {
	if gi := p.matcherFor(p.root); gi != nil {
		if match := gi.Relative(rel, isDir); match != nil && match.Ignore() {
			return true
		}
	}

	dir := path.Dir(rel)
	if dir == "." {
		return false
	}

	prefix := ""
	for _, part := range strings.Split(dir, "/") {
		if prefix == "" {
			prefix = part
		} else {
			prefix = prefix + "/" + part
		}
		gi := p.matcherFor(filepath.Join(p.root, filepath.FromSlash(prefix)))
		if gi == nil {
			continue
		}
		sub := strings.TrimPrefix(rel, prefix+"/")
		if match := gi.Relative(sub, isDir); match != nil && match.Ignore() {
			return true
		}
	}

	return false
}

// matcherFor returns the cached gitignore matcher for a directory, loading
// its .gitignore on first use. Returns nil when the directory has none.
func (p *Policy) matcherFor(dir string) gitignore.GitIgnore {
	if gi, ok := p.cache.Get(dir); ok {
		return gi
	}

	var gi gitignore.GitIgnore
	f, err := os.Open(filepath.Join(dir, ".gitignore"))
	if err == nil {
		gi = gitignore.New(f, dir, nil)
		_ = f.Close()
	}

	p.cache.Add(dir, gi)
	return gi
}
