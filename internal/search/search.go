// Package search runs line-oriented queries over the in-memory index.
package search

import (
	"regexp"
	"strings"

	"github.com/mirrordex/mirrordex/internal/index"
	"github.com/mirrordex/mirrordex/internal/safematch"
)

// Mode selects how the query string is interpreted.
type Mode int

const (
	// ModeLiteral escapes the query and matches it verbatim.
	ModeLiteral Mode = iota
	// ModeRegex compiles the query as a regular expression after the safety
	// screen.
	ModeRegex
)

// DefaultMaxResults caps result collection when the caller sets no limit.
const DefaultMaxResults = 100

// Options configures one search call.
type Options struct {
	// Mode is literal (default) or regex.
	Mode Mode

	// CaseSensitive disables the default case folding.
	CaseSensitive bool

	// WholeWord requires word boundaries around literal matches. Ignored in
	// regex mode, where the pattern spells its own boundaries.
	WholeWord bool

	// PathFilter keeps only files whose relative path contains this substring.
	PathFilter string

	// Language keeps only files with this language tag.
	Language string

	// MaxResults caps the total number of line matches (0 = DefaultMaxResults).
	MaxResults int
}

// Match is one matching line within a file.
type Match struct {
	// Line is 1-based.
	Line int

	// Text is the matched line with surrounding whitespace trimmed.
	Text string

	// Start and End are byte offsets of the match within the original,
	// untrimmed line.
	Start int
	End   int
}

// FileMatches groups all matches found in one file.
type FileMatches struct {
	RelPath  string
	Language string
	Matches  []Match
}

// Engine queries a Store. It holds no state of its own.
type Engine struct {
	store *index.Store
}

// NewEngine creates an Engine reading from store.
func NewEngine(store *index.Store) *Engine {
	return &Engine{store: store}
}

// Search finds occurrences of query across all indexed records. Regex
// queries that fail the safety screen return *safematch.UnsafePatternError
// before any matching runs. Files are visited in index insertion order so
// results are reproducible for a fixed snapshot; collection stops at the
// result cap.
func (e *Engine) Search(query string, opts Options) ([]FileMatches, error) {
	re, err := e.compile(query, opts)
	if err != nil {
		return nil, err
	}

	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	var out []FileMatches
	total := 0
	for _, rec := range e.store.All() {
		if total >= limit {
			break
		}
		if opts.PathFilter != "" && !strings.Contains(rec.RelPath, opts.PathFilter) {
			continue
		}
		if opts.Language != "" && rec.Language != opts.Language {
			continue
		}

		matches := matchLines(rec.Content, re, limit-total)
		if len(matches) == 0 {
			continue
		}
		total += len(matches)
		out = append(out, FileMatches{
			RelPath:  rec.RelPath,
			Language: rec.Language,
			Matches:  matches,
		})
	}
	return out, nil
}

func (e *Engine) compile(query string, opts Options) (*regexp.Regexp, error) {
	if opts.Mode == ModeRegex {
		return safematch.Compile(query, !opts.CaseSensitive)
	}
	return safematch.CompileLiteral(query, !opts.CaseSensitive, opts.WholeWord), nil
}

// matchLines tests each line independently and records the first match per
// line with its offsets in the original line.
func matchLines(content string, re *regexp.Regexp, remaining int) []Match {
	var matches []Match
	lineNo := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		if line == "" {
			// SplitAfter yields a trailing empty segment when content ends
			// with a newline; strings.Lines would not yield it.
			continue
		}
		lineNo++
		if len(matches) >= remaining {
			break
		}
		line = strings.TrimSuffix(line, "\n")
		loc := re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		matches = append(matches, Match{
			Line:  lineNo,
			Text:  strings.TrimSpace(line),
			Start: loc[0],
			End:   loc[1],
		})
	}
	return matches
}
