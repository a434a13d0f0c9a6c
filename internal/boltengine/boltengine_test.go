package boltengine

import (
	"path/filepath"
	"testing"

	"github.com/kvaultdb/kvault/pkg/logger"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *BoltEngine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kvault.db")
	e, err := New(&Config{Path: path, Logger: logger.New("boltengine-test")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestGetAbsentKeyReturnsFalseNotError(t *testing.T) {
	e := newTestEngine(t)

	value, ok, err := e.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, value)
}

func TestSetGetRemove(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.Set("a", "1"))

	value, ok, err := e.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", value)

	require.NoError(t, e.Remove("a"))

	_, ok, err = e.Get("a")
	require.NoError(t, err)
	require.False(t, ok)

	require.Error(t, e.Remove("a"))
}

func TestOperationsAfterCloseFail(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Close())

	require.ErrorIs(t, e.Set("a", "1"), ErrEngineClosed)
	_, _, err := e.Get("a")
	require.ErrorIs(t, err, ErrEngineClosed)
	require.ErrorIs(t, e.Remove("a"), ErrEngineClosed)
}
