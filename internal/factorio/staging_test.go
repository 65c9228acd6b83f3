package factorio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenarios")

	created, err := EnsureDir(dir)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureDir(dir)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCreateDirSafely(t *testing.T) {
	parent := t.TempDir()

	first, err := CreateDirSafely(parent, "staging")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "staging"), first)

	second, err := CreateDirSafely(parent, "staging")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "staging_0"), second)

	third, err := CreateDirSafely(parent, "staging")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "staging_1"), third)
}

func TestWriteFileSafely(t *testing.T) {
	parent := t.TempDir()

	first, err := WriteFileSafely(parent, "game_data", "json", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "game_data.json"), first)

	second, err := WriteFileSafely(parent, "game_data", "json", []byte("two"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "game_data_0.json"), second)

	// The original file is untouched.
	content, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(content))
	content, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "two", string(content))
}

func TestTempDirCleanup(t *testing.T) {
	parent := t.TempDir()

	path, err := CreateDirSafely(parent, "staged")
	require.NoError(t, err)

	staged := NewTempDir(path)
	staged.Cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestTempDirRelease(t *testing.T) {
	parent := t.TempDir()

	path, err := CreateDirSafely(parent, "staged")
	require.NoError(t, err)

	staged := NewTempDir(path)
	staged.Release()
	staged.Cleanup()
	_, err = os.Stat(path)
	assert.NoError(t, err, "released directory survives cleanup")
}

func TestEnsureTempDirOnlyRemovesWhatItCreated(t *testing.T) {
	existing := t.TempDir()

	staged, err := EnsureTempDir(existing)
	require.NoError(t, err)
	staged.Cleanup()
	_, err = os.Stat(existing)
	assert.NoError(t, err, "pre-existing directory survives cleanup")

	fresh := filepath.Join(existing, "fresh")
	staged, err = EnsureTempDir(fresh)
	require.NoError(t, err)
	staged.Cleanup()
	_, err = os.Stat(fresh)
	assert.True(t, os.IsNotExist(err))
}

func TestTempFileCleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control.lua")
	require.NoError(t, os.WriteFile(path, []byte("-- script"), 0o644))

	staged := NewTempFile(path)
	staged.Cleanup()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
