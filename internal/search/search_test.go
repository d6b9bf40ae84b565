package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrordex/mirrordex/internal/index"
	"github.com/mirrordex/mirrordex/internal/safematch"
)

func seededStore() *index.Store {
	s := index.NewStore()
	s.Put(&index.FileRecord{
		RelPath:  "a.go",
		Language: "go",
		Content:  "package a\n\nfunc Foo() {}\n",
	})
	s.Put(&index.FileRecord{
		RelPath:  "b.ts",
		Language: "typescript",
		Content:  "const bar = 1\nexport { bar }\n",
	})
	return s
}

func TestSearchLiteralCaseInsensitive(t *testing.T) {
	e := NewEngine(seededStore())

	results, err := e.Search("foo", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	fm := results[0]
	assert.Equal(t, "a.go", fm.RelPath)
	require.Len(t, fm.Matches, 1)

	m := fm.Matches[0]
	assert.Equal(t, 3, m.Line)
	assert.Equal(t, "func Foo() {}", m.Text)
	// "func Foo() {}" — the match starts after "func ".
	assert.Equal(t, 5, m.Start)
	assert.Equal(t, 8, m.End)
}

func TestSearchLiteralCaseSensitive(t *testing.T) {
	e := NewEngine(seededStore())

	results, err := e.Search("foo", Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = e.Search("Foo", Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchWholeWord(t *testing.T) {
	s := index.NewStore()
	s.Put(&index.FileRecord{RelPath: "w.txt", Content: "foo foobar\n"})
	e := NewEngine(s)

	results, err := e.Search("foo", Options{WholeWord: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Matches, 1)
	// Only the standalone "foo" at offset 0 matches.
	assert.Equal(t, 0, results[0].Matches[0].Start)
	assert.Equal(t, 3, results[0].Matches[0].End)
}

func TestSearchLiteralEscapesMetacharacters(t *testing.T) {
	s := index.NewStore()
	s.Put(&index.FileRecord{RelPath: "m.txt", Content: "value (a+)+ here\nvalue aa here\n"})
	e := NewEngine(s)

	results, err := e.Search("(a+)+", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Matches, 1)
	assert.Equal(t, 1, results[0].Matches[0].Line)
}

func TestSearchRegex(t *testing.T) {
	e := NewEngine(seededStore())

	results, err := e.Search(`func \w+\(\)`, Options{Mode: ModeRegex})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go", results[0].RelPath)
}

func TestSearchUnsafeRegexRejected(t *testing.T) {
	e := NewEngine(seededStore())

	_, err := e.Search("(a+)+", Options{Mode: ModeRegex})
	require.Error(t, err)
	var unsafeErr *safematch.UnsafePatternError
	assert.ErrorAs(t, err, &unsafeErr)
}

func TestSearchFilters(t *testing.T) {
	e := NewEngine(seededStore())

	results, err := e.Search("a", Options{Language: "typescript"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b.ts", results[0].RelPath)

	results, err = e.Search("a", Options{PathFilter: ".go"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go", results[0].RelPath)

	results, err = e.Search("a", Options{PathFilter: "no-such-dir/"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchMaxResultsCap(t *testing.T) {
	s := index.NewStore()
	for i := 0; i < 5; i++ {
		s.Put(&index.FileRecord{
			RelPath: fmt.Sprintf("f%d.txt", i),
			Content: "needle one\nneedle two\nneedle three\n",
		})
	}
	e := NewEngine(s)

	results, err := e.Search("needle", Options{MaxResults: 4})
	require.NoError(t, err)

	total := 0
	for _, fm := range results {
		total += len(fm.Matches)
	}
	assert.Equal(t, 4, total)
	// Insertion order: the first two files fill the cap (3 + 1).
	require.Len(t, results, 2)
	assert.Equal(t, "f0.txt", results[0].RelPath)
	assert.Len(t, results[1].Matches, 1)
}

func TestSearchDeterministicOrder(t *testing.T) {
	s := index.NewStore()
	s.Put(&index.FileRecord{RelPath: "z.txt", Content: "hit\n"})
	s.Put(&index.FileRecord{RelPath: "a.txt", Content: "hit\n"})
	e := NewEngine(s)

	for i := 0; i < 3; i++ {
		results, err := e.Search("hit", Options{})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "z.txt", results[0].RelPath)
		assert.Equal(t, "a.txt", results[1].RelPath)
	}
}
