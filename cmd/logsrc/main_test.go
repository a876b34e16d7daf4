package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.log", "b.log", "sub/c.log", "notes.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
	}

	paths, err := expandPaths([]string{
		filepath.Join(dir, "**", "*.log"),
		filepath.Join(dir, "a.log"),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.log"),
		filepath.Join(dir, "b.log"),
		filepath.Join(dir, "sub", "c.log"),
	}, paths)
}

func TestExpandPaths_KeepsMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.log")
	paths, err := expandPaths([]string{missing})
	require.NoError(t, err)
	assert.Equal(t, []string{missing}, paths)
}

func TestExpandPaths_BadPattern(t *testing.T) {
	_, err := expandPaths([]string{"[unclosed"})
	assert.Error(t, err)
}
