// Package verify audits three-way consistency between the in-memory index,
// the persisted manifest, and the mirror content objects, and can reconcile
// divergence.
package verify

import (
	"fmt"
	"sort"

	"github.com/mirrordex/mirrordex/internal/index"
	"github.com/mirrordex/mirrordex/internal/mirror"
)

// Kind classifies one divergence between the three states.
type Kind int

const (
	// KindMissingFromMemory: the manifest lists a path the index does not hold.
	KindMissingFromMemory Kind = iota
	// KindMissingFromManifest: the index holds a path the manifest omits.
	KindMissingFromManifest
	// KindMissingFromDisk: the index holds a path with no content object.
	KindMissingFromDisk
	// KindOrphaned: a content object exists for a path the index does not hold.
	KindOrphaned
)

func (k Kind) String() string {
	switch k {
	case KindMissingFromMemory:
		return "missing from memory"
	case KindMissingFromManifest:
		return "missing from manifest"
	case KindMissingFromDisk:
		return "missing from disk"
	case KindOrphaned:
		return "orphaned"
	default:
		return "unknown"
	}
}

// Issue is one detected divergence.
type Issue struct {
	Kind Kind
	Path string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Kind, i.Path)
}

// Stats are the raw counts behind a report.
type Stats struct {
	Indexed             int
	MissingFromMemory   int
	MissingFromManifest int
	MissingFromDisk     int
	Orphaned            int
}

// Report is the structured result of a verification pass. Valid is true iff
// all four divergence sets are empty.
type Report struct {
	Valid  bool
	Issues []Issue
	Stats  Stats
}

// Checker compares the live index against the persisted state.
type Checker struct {
	store  *index.Store
	mirror *mirror.Mirror
}

// NewChecker creates a Checker over the given store and mirror.
func NewChecker(store *index.Store, m *mirror.Mirror) *Checker {
	return &Checker{store: store, mirror: m}
}

// Verify reads the manifest and the mirror tree cold from disk and compares
// them against the live index. It never mutates anything, so it is safe to
// run repeatedly and concurrently with read-only queries. Only a failure to
// read the persisted state at all is an error.
func (c *Checker) Verify() (*Report, error) {
	manifest, err := c.mirror.ReadManifest()
	if err != nil {
		return nil, err
	}
	contentPaths, err := c.mirror.ContentPaths()
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]struct{}, len(contentPaths))
	for _, p := range contentPaths {
		onDisk[p] = struct{}{}
	}
	inMemory := make(map[string]struct{})
	for _, p := range c.store.Paths() {
		inMemory[p] = struct{}{}
	}

	report := &Report{Stats: Stats{Indexed: len(inMemory)}}

	for p := range manifest {
		if _, ok := inMemory[p]; !ok {
			report.Issues = append(report.Issues, Issue{Kind: KindMissingFromMemory, Path: p})
			report.Stats.MissingFromMemory++
		}
	}
	for p := range inMemory {
		if _, ok := manifest[p]; !ok {
			report.Issues = append(report.Issues, Issue{Kind: KindMissingFromManifest, Path: p})
			report.Stats.MissingFromManifest++
		}
		if _, ok := onDisk[p]; !ok {
			report.Issues = append(report.Issues, Issue{Kind: KindMissingFromDisk, Path: p})
			report.Stats.MissingFromDisk++
		}
	}
	for p := range onDisk {
		if _, ok := inMemory[p]; !ok {
			report.Issues = append(report.Issues, Issue{Kind: KindOrphaned, Path: p})
			report.Stats.Orphaned++
		}
	}

	sort.Slice(report.Issues, func(i, j int) bool {
		if report.Issues[i].Kind != report.Issues[j].Kind {
			return report.Issues[i].Kind < report.Issues[j].Kind
		}
		return report.Issues[i].Path < report.Issues[j].Path
	})

	report.Valid = len(report.Issues) == 0
	return report, nil
}

// Repair reconciles live divergence, trusting memory over disk: orphaned
// content objects are deleted, missing content objects are rewritten from
// the in-memory records, and the manifest is rewritten to exactly match the
// index. It re-verifies afterward; residual issues are surfaced in the
// returned report rather than fixed by guessing.
func (c *Checker) Repair() (*Report, error) {
	before, err := c.Verify()
	if err != nil {
		return nil, err
	}

	for _, issue := range before.Issues {
		switch issue.Kind {
		case KindOrphaned:
			if err := c.mirror.DeleteContent(issue.Path); err != nil {
				return nil, fmt.Errorf("remove orphaned content %s: %w", issue.Path, err)
			}
		case KindMissingFromDisk:
			rec, ok := c.store.Get(issue.Path)
			if !ok {
				continue
			}
			if err := c.mirror.WriteContent(issue.Path, []byte(rec.Content)); err != nil {
				return nil, fmt.Errorf("restore content %s: %w", issue.Path, err)
			}
		}
	}

	entries := make(map[string]mirror.ManifestEntry)
	for _, rec := range c.store.All() {
		entries[rec.RelPath] = mirror.ManifestEntry{
			Language:     rec.Language,
			Size:         rec.Size,
			LastModified: rec.ModTime,
		}
	}
	if err := c.mirror.WriteManifest(entries); err != nil {
		return nil, err
	}

	return c.Verify()
}
