package verify

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrordex/mirrordex/internal/index"
	"github.com/mirrordex/mirrordex/internal/mirror"
)

// fixture builds a store and mirror holding the same two files, fully
// consistent.
func fixture(t *testing.T) (*index.Store, *mirror.Mirror, *Checker) {
	t.Helper()

	m, err := mirror.Open(filepath.Join(t.TempDir(), ".mirrordex"))
	require.NoError(t, err)
	store := index.NewStore()

	now := time.Now().UTC().Truncate(time.Second)
	entries := make(map[string]mirror.ManifestEntry)
	for rel, content := range map[string]string{
		"a.ts":     "const a = 1\n",
		"pkg/b.go": "package pkg\n",
	} {
		store.Put(&index.FileRecord{
			RelPath:  rel,
			Content:  content,
			Language: "x",
			Size:     int64(len(content)),
			ModTime:  now,
		})
		require.NoError(t, m.WriteContent(rel, []byte(content)))
		entries[rel] = mirror.ManifestEntry{Language: "x", Size: int64(len(content)), LastModified: now}
	}
	require.NoError(t, m.WriteManifest(entries))

	return store, m, NewChecker(store, m)
}

func TestVerifyConsistentState(t *testing.T) {
	_, _, c := fixture(t)

	report, err := c.Verify()
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
	assert.Equal(t, 2, report.Stats.Indexed)
}

func TestVerifyMissingFromDisk(t *testing.T) {
	_, m, c := fixture(t)
	require.NoError(t, m.DeleteContent("a.ts"))

	report, err := c.Verify()
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, 1, report.Stats.MissingFromDisk)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, KindMissingFromDisk, report.Issues[0].Kind)
	assert.Equal(t, "a.ts", report.Issues[0].Path)
}

func TestVerifyOrphaned(t *testing.T) {
	_, m, c := fixture(t)
	require.NoError(t, m.WriteContent("stale.go", []byte("package stale\n")))

	report, err := c.Verify()
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, 1, report.Stats.Orphaned)
}

func TestVerifyMissingFromMemoryAndManifest(t *testing.T) {
	store, m, c := fixture(t)

	// The index drops one path the manifest still lists, and gains one the
	// manifest has never seen.
	store.Remove("a.ts")
	store.Put(&index.FileRecord{RelPath: "new.go", Content: "package new\n", Size: 12})
	require.NoError(t, m.WriteContent("new.go", []byte("package new\n")))

	report, err := c.Verify()
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, 1, report.Stats.MissingFromMemory)
	assert.Equal(t, 1, report.Stats.MissingFromManifest)
	// a.ts still has a content object but no index entry.
	assert.Equal(t, 1, report.Stats.Orphaned)
}

func TestVerifyDoesNotMutate(t *testing.T) {
	_, m, c := fixture(t)
	require.NoError(t, m.DeleteContent("a.ts"))

	for i := 0; i < 2; i++ {
		report, err := c.Verify()
		require.NoError(t, err)
		assert.Equal(t, 1, report.Stats.MissingFromDisk)
	}
}

func TestRepairRestoresMissingContent(t *testing.T) {
	_, m, c := fixture(t)
	require.NoError(t, m.DeleteContent("a.ts"))

	report, err := c.Repair()
	require.NoError(t, err)
	assert.True(t, report.Valid)

	content, err := m.ReadContent("a.ts")
	require.NoError(t, err)
	assert.Equal(t, "const a = 1\n", string(content))
}

func TestRepairDeletesOrphansAndRewritesManifest(t *testing.T) {
	store, m, c := fixture(t)

	store.Remove("a.ts")
	require.NoError(t, m.WriteContent("stale.go", []byte("x")))

	report, err := c.Repair()
	require.NoError(t, err)
	assert.True(t, report.Valid)

	// Memory wins: the removed path and the stray object are both gone.
	_, err = m.ReadContent("a.ts")
	assert.ErrorIs(t, err, mirror.ErrNotFound)
	_, err = m.ReadContent("stale.go")
	assert.ErrorIs(t, err, mirror.ErrNotFound)

	entries, err := m.ReadManifest()
	require.NoError(t, err)
	assert.NotContains(t, entries, "a.ts")
	assert.Contains(t, entries, "pkg/b.go")
}

func TestRepairIdempotent(t *testing.T) {
	_, m, c := fixture(t)
	require.NoError(t, m.DeleteContent("pkg/b.go"))
	require.NoError(t, m.WriteContent("stray.txt", []byte("x")))

	first, err := c.Repair()
	require.NoError(t, err)
	assert.True(t, first.Valid)

	second, err := c.Repair()
	require.NoError(t, err)
	assert.True(t, second.Valid)
	assert.Empty(t, second.Issues)
}
