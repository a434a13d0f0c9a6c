package index

import (
	"context"
	"testing"

	"github.com/kvaultdb/kvault/pkg/logger"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(context.Background(), &Config{DataDir: t.TempDir(), Logger: logger.New("index-test")})
	require.NoError(t, err)
	return idx
}

func TestGetAbsentKey(t *testing.T) {
	idx := newTestIndex(t)

	_, ok, err := idx.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetThenGet(t *testing.T) {
	idx := newTestIndex(t)

	loc := Locator{Gen: 1, Pos: 10, Len: 5}
	require.NoError(t, idx.Set("a", loc))

	got, ok, err := idx.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, loc, got)
}

func TestDeleteReportsPresence(t *testing.T) {
	idx := newTestIndex(t)

	ok, err := idx.Delete("a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, idx.Set("a", Locator{Gen: 0, Pos: 0, Len: 1}))

	ok, err = idx.Delete("a")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = idx.Get("a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRangeSnapshotsEntries(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Set("a", Locator{Gen: 0, Pos: 0, Len: 1}))
	require.NoError(t, idx.Set("b", Locator{Gen: 0, Pos: 1, Len: 1}))

	seen := make(map[string]Locator)
	err := idx.Range(func(key string, loc Locator) error {
		seen[key] = loc
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Close())

	_, _, err := idx.Get("a")
	require.ErrorIs(t, err, ErrIndexClosed)

	err = idx.Set("a", Locator{})
	require.ErrorIs(t, err, ErrIndexClosed)

	_, err = idx.Delete("a")
	require.ErrorIs(t, err, ErrIndexClosed)

	err = idx.Close()
	require.ErrorIs(t, err, ErrIndexClosed)
}
