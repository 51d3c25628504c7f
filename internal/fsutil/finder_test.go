package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{
		"range.schema.json",
		"nested/ping.schema.json",
		"nested/notes.txt",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	}
	return dir
}

func TestFindFilesByExtension(t *testing.T) {
	t.Parallel()

	dir := writeTree(t)
	files, err := FindFilesByExtension(dir, ".schema.json")
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestFindFilesByExtension_EmptyExtensionPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir(), "") })
}

func TestExpand(t *testing.T) {
	t.Parallel()

	dir := writeTree(t)
	isDir := func(p string) bool {
		info, err := os.Stat(p)
		return err == nil && info.IsDir()
	}

	// Glob pattern.
	files, err := Expand(filepath.Join(dir, "*.schema.json"), ".schema.json", isDir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	// Directory walk.
	files, err = Expand(dir, ".schema.json", isDir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	// Plain path passes through untouched.
	files, err = Expand(filepath.Join(dir, "range.schema.json"), ".schema.json", isDir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "range.schema.json")}, files)
}
