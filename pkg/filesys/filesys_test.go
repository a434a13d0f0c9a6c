package filesys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateDirForceRecreatesOverExisting(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "segments")

	require.NoError(t, CreateDir(dir, 0755, false))
	require.NoError(t, CreateDir(dir, 0755, true))

	err := CreateDir(dir, 0755, false)
	require.Error(t, err)
}

func TestCreateDirRejectsExistingFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	err := CreateDir(path, 0755, true)
	require.ErrorIs(t, err, ErrIsNotDir)
}

func TestWriteFileThenReadFileRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")

	require.NoError(t, WriteFile(path, 0644, []byte("hello")))

	contents, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(contents))
}

func TestExistsReflectsFilesystemState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maybe.txt")

	ok, err := Exists(path)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, WriteFile(path, 0644, []byte("x")))

	ok, err = Exists(path)
	require.NoError(t, err)
	require.True(t, ok)
}
