package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested", FileName))
	require.NoError(t, err)

	_, ok := s.Get(KeyToken)
	assert.False(t, ok)
}

func TestFileStore_SetPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenDir(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyToken, "abc"))

	reopened, err := OpenDir(dir)
	require.NoError(t, err)

	got, ok := reopened.Get(KeyToken)
	require.True(t, ok)
	assert.Equal(t, "abc", got)

	info, err := os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_Remove(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenDir(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyToken, "abc"))
	require.NoError(t, s.Set(KeyRedirect, "/dashboard/tasks"))
	require.NoError(t, s.Remove(KeyToken))
	require.NoError(t, s.Remove("never-set"))

	reopened, err := OpenDir(dir)
	require.NoError(t, err)

	_, ok := reopened.Get(KeyToken)
	assert.False(t, ok)
	redirect, ok := reopened.Get(KeyRedirect)
	assert.True(t, ok)
	assert.Equal(t, "/dashboard/tasks", redirect)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse storage")
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()

	require.NoError(t, m.Set(KeyToken, "t"))
	v, ok := m.Get(KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "t", v)

	require.NoError(t, m.Remove(KeyToken))
	_, ok = m.Get(KeyToken)
	assert.False(t, ok)
}
