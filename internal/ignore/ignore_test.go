package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(t *testing.T, root string, opts Options) *Policy {
	t.Helper()
	p, err := NewPolicy(root, ".mirrordex", opts)
	require.NoError(t, err)
	return p
}

func TestExcludeDirDefaults(t *testing.T) {
	p := newTestPolicy(t, t.TempDir(), Options{})

	assert.True(t, p.ExcludeDir("node_modules"))
	assert.True(t, p.ExcludeDir("pkg/node_modules/lib"))
	assert.True(t, p.ExcludeDir(".git"))
	assert.True(t, p.ExcludeDir("vendor"))
	assert.True(t, p.ExcludeDir(".mirrordex"))
	assert.True(t, p.ExcludeDir(".mirrordex/mirror"))

	assert.False(t, p.ExcludeDir("src"))
	assert.False(t, p.ExcludeDir("internal/index"))
}

func TestExcludeFileDefaults(t *testing.T) {
	p := newTestPolicy(t, t.TempDir(), Options{})

	assert.True(t, p.ExcludeFile("assets/logo.png"))
	assert.True(t, p.ExcludeFile("bundle.min.js"))
	assert.True(t, p.ExcludeFile("package-lock.json"))
	assert.True(t, p.ExcludeFile("go.sum"))
	assert.True(t, p.ExcludeFile("lib/native.so"))

	assert.False(t, p.ExcludeFile("main.go"))
	assert.False(t, p.ExcludeFile("src/app.ts"))
	assert.False(t, p.ExcludeFile("README.md"))
}

func TestExcludeFileSensitive(t *testing.T) {
	p := newTestPolicy(t, t.TempDir(), Options{})

	assert.True(t, p.ExcludeFile(".env"))
	assert.True(t, p.ExcludeFile("config/.env.production"))
	assert.True(t, p.ExcludeFile("certs/server.pem"))
	assert.True(t, p.ExcludeFile("deploy/id_rsa"))
	assert.True(t, p.ExcludeFile("aws_credentials.txt"))
}

func TestUserPatterns(t *testing.T) {
	p := newTestPolicy(t, t.TempDir(), Options{
		Patterns: []string{"*.generated.go", "docs/**", "**/testdata/**"},
	})

	assert.True(t, p.ExcludeFile("api/types.generated.go"))
	assert.True(t, p.ExcludeFile("docs/guide.md"))
	assert.True(t, p.ExcludeDir("docs"))
	assert.True(t, p.ExcludeFile("pkg/parser/testdata/input.txt"))

	assert.False(t, p.ExcludeFile("api/types.go"))
	assert.False(t, p.ExcludeDir("pkg/parser"))
}

func TestGitignoreRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(root, ".gitignore"),
		[]byte("# build output\n*.log\ntmp/\n\n!keep.log\n"),
		0o644,
	))

	p := newTestPolicy(t, root, Options{RespectGitignore: true})

	assert.True(t, p.ExcludeFile("debug.log"))
	assert.True(t, p.ExcludeFile("sub/dir/trace.log"))
	assert.True(t, p.ExcludeDir("tmp"))
	assert.False(t, p.ExcludeFile("keep.log"))
	assert.False(t, p.ExcludeFile("main.go"))
}

func TestGitignoreNested(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "service")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, ".gitignore"), []byte("local.yaml\n"), 0o644))

	p := newTestPolicy(t, root, Options{RespectGitignore: true})

	assert.True(t, p.ExcludeFile("service/local.yaml"))
	assert.False(t, p.ExcludeFile("local.yaml"))
}

func TestGitignoreDisabled(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644))

	p := newTestPolicy(t, root, Options{RespectGitignore: false})
	assert.False(t, p.ExcludeFile("debug.log"))
}

func TestReloadPicksUpChanges(t *testing.T) {
	root := t.TempDir()
	gi := filepath.Join(root, ".gitignore")
	require.NoError(t, os.WriteFile(gi, []byte("*.old\n"), 0o644))

	p := newTestPolicy(t, root, Options{RespectGitignore: true})
	assert.True(t, p.ExcludeFile("data.old"))
	assert.False(t, p.ExcludeFile("data.new"))

	require.NoError(t, os.WriteFile(gi, []byte("*.new\n"), 0o644))
	p.Reload()

	assert.True(t, p.ExcludeFile("data.new"))
	assert.False(t, p.ExcludeFile("data.old"))
}
