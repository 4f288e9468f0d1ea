package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	m := NewManager(nil)

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "3_Summary_Matrix", "Master_DRT_Matrix.csv")
		require.NoError(t, m.WriteFileAtomic(path, []byte("Tau,a\n1,2\n")))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Tau,a\n1,2\n", string(content))
	})

	t.Run("overwrites and leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.csv")
		require.NoError(t, m.WriteFileAtomic(path, []byte("first")))
		require.NoError(t, m.WriteFileAtomic(path, []byte("second")))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "second", string(content))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "out.csv", entries[0].Name())

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
	})

	t.Run("fails when target is a directory", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "taken")
		require.NoError(t, os.Mkdir(target, 0755))

		assert.Error(t, m.WriteFileAtomic(target, []byte("x")))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestManagerFileHelpers(t *testing.T) {
	m := NewManager(nil)
	dir := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, m.EnsureDirectory(dir))
	assert.DirExists(t, dir)
	require.NoError(t, m.EnsureDirectory(dir))

	path := filepath.Join(dir, "f.txt")
	assert.NoFileExists(t, path)
	require.NoError(t, m.WriteFileAtomic(path, []byte("data")))
	assert.FileExists(t, path)

	content, err := m.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), content)
}
