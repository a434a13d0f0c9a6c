package kvault

import (
	"context"
	"testing"

	"github.com/kvaultdb/kvault/pkg/options"
	"github.com/stretchr/testify/require"
)

func TestInstanceSetGetDelete(t *testing.T) {
	ctx := context.Background()
	inst, err := NewInstance(ctx, "kvault-test", options.WithDataDir(t.TempDir()))
	require.NoError(t, err)
	defer inst.Close(ctx)

	require.NoError(t, inst.Set(ctx, "a", "1"))

	value, ok, err := inst.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", value)

	require.NoError(t, inst.Delete(ctx, "a"))

	_, ok, err = inst.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInstanceBoltEngine(t *testing.T) {
	ctx := context.Background()
	inst, err := NewInstance(ctx, "kvault-test", options.WithDataDir(t.TempDir()), options.WithEngine(options.EngineBolt))
	require.NoError(t, err)
	defer inst.Close(ctx)

	require.NoError(t, inst.Set(ctx, "a", "1"))
	value, ok, err := inst.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", value)
}
