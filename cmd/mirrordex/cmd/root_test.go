package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and returns captured output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func scratchProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	return root
}

func TestVersionCommand(t *testing.T) {
	root := scratchProject(t, nil)

	out, err := runCLI(t, "--root", root, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = runCLI(t, "--root", root, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)
}

func TestScanSearchGetFlow(t *testing.T) {
	root := scratchProject(t, map[string]string{
		"main.go":   "package main\n\nfunc main() { greet() }\n",
		"greet.go":  "package main\n\nfunc greet() {}\n",
		"notes.txt": "remember to greet politely\n",
	})

	out, err := runCLI(t, "--root", root, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 3 files")

	out, err = runCLI(t, "--root", root, "search", "greet", "--language", "go")
	require.NoError(t, err)
	assert.Contains(t, out, "main.go:3")
	assert.Contains(t, out, "greet.go:3")
	assert.NotContains(t, out, "notes.txt")

	out, err = runCLI(t, "--root", root, "get", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "remember to greet politely\n", out)

	out, err = runCLI(t, "--root", root, "get", "notes.txt", "--meta")
	require.NoError(t, err)
	assert.Contains(t, out, "path:     notes.txt")

	_, err = runCLI(t, "--root", root, "get", "absent.go")
	assert.Error(t, err)
}

func TestUpsertAndRmCommands(t *testing.T) {
	root := scratchProject(t, nil)

	_, err := runCLI(t, "--root", root, "scan")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "late.go"), []byte("package late\n"), 0o644))
	out, err := runCLI(t, "--root", root, "upsert", "late.go")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed late.go")

	out, err = runCLI(t, "--root", root, "rm", "late.go")
	require.NoError(t, err)
	assert.Contains(t, out, "removed late.go")

	_, err = runCLI(t, "--root", root, "get", "late.go")
	assert.Error(t, err)
}

func TestVerifyCommand(t *testing.T) {
	root := scratchProject(t, map[string]string{"a.go": "package a\n"})

	_, err := runCLI(t, "--root", root, "scan")
	require.NoError(t, err)

	out, err := runCLI(t, "--root", root, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "consistent")

	// Damage the mirror behind the index's back, then repair.
	snapshot := filepath.Join(root, ".mirrordex", "mirror", "a.go.snapshot")
	require.NoError(t, os.Remove(snapshot))

	_, err = runCLI(t, "--root", root, "verify", "--repair")
	require.NoError(t, err)

	out, err = runCLI(t, "--root", root, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "consistent")
}

func TestStatusCommand(t *testing.T) {
	root := scratchProject(t, map[string]string{
		"a.go": "package a\n",
		"b.ts": "const b = 1\n",
	})

	_, err := runCLI(t, "--root", root, "scan")
	require.NoError(t, err)

	out, err := runCLI(t, "--root", root, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "files:   2")
	assert.Contains(t, out, "go")
	assert.Contains(t, out, "typescript")
}
