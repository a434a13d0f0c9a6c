package engine

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/kvaultdb/kvault/pkg/errors"
	"github.com/kvaultdb/kvault/pkg/logger"
	"github.com/kvaultdb/kvault/pkg/options"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...options.OptionFunc) *Engine {
	t.Helper()

	dir := t.TempDir()
	o := options.NewDefaultOptions()
	o.DataDir = dir
	for _, opt := range opts {
		opt(&o)
	}

	e, err := New(context.Background(), &Config{Options: &o, Logger: logger.New("engine-test")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestOpenEmptyDirGetReturnsAbsent(t *testing.T) {
	e := newTestEngine(t)

	value, ok, err := e.Get("a")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, value)
}

func TestSetOverwriteGetRemove(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.Set("a", "1"))
	require.NoError(t, e.Set("a", "2"))

	value, ok, err := e.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", value)

	require.NoError(t, e.Remove("a"))

	_, ok, err = e.Get("a")
	require.NoError(t, err)
	require.False(t, ok)

	err = e.Remove("a")
	require.Error(t, err)
	_, isKeyNotFound := errors.AsIndexError(err)
	require.True(t, isKeyNotFound)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	o := options.NewDefaultOptions()
	o.DataDir = dir

	e, err := New(context.Background(), &Config{Options: &o, Logger: logger.New("engine-test")})
	require.NoError(t, err)

	for i := 0; i < 10000; i++ {
		key := "k" + strconv.Itoa(i)
		value := "v" + strconv.Itoa(i)
		require.NoError(t, e.Set(key, value))
	}
	require.NoError(t, e.Close())

	e2, err := New(context.Background(), &Config{Options: &o, Logger: logger.New("engine-test")})
	require.NoError(t, err)
	defer e2.Close()

	value, ok, err := e2.Get("k7777")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v7777", value)
}

func TestCompactionKeepsLastValue(t *testing.T) {
	e := newTestEngine(t, func(o *options.Options) { o.SegmentOptions.Capacity = 50 })

	for i := 0; i < 5000; i++ {
		require.NoError(t, e.Set("x", "v"+strconv.Itoa(i)))
	}

	value, ok, err := e.Get("x")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v4999", value)
}

func TestCompactionReclaimsSpace(t *testing.T) {
	dir := t.TempDir()
	o := options.NewDefaultOptions()
	o.DataDir = dir
	o.SegmentOptions.Capacity = 50

	e, err := New(context.Background(), &Config{Options: &o, Logger: logger.New("engine-test")})
	require.NoError(t, err)

	for i := 0; i < 5000; i++ {
		require.NoError(t, e.Set("x", "same-value-written-many-times"))
	}
	require.NoError(t, e.Close())

	var total int64
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		info, err := entry.Info()
		require.NoError(t, err)
		total += info.Size()
	}

	require.Less(t, total, int64(50_000), "directory size should be small relative to 5000 writes")
}

func TestReplayOfUnknownRemoveIsFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0.log"), []byte(`{"Rm":{"key":"ghost"}}`), 0644))

	o := options.NewDefaultOptions()
	o.DataDir = dir

	_, err := New(context.Background(), &Config{Options: &o, Logger: logger.New("engine-test")})
	require.Error(t, err)
	_, ok := errors.AsEngineError(err)
	require.True(t, ok)
}
