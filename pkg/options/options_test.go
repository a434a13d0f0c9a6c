package options

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultOptionsAreIndependent(t *testing.T) {
	a := NewDefaultOptions()
	b := NewDefaultOptions()

	a.SegmentOptions.Capacity = 42

	require.Equal(t, DefaultCapacity, b.SegmentOptions.Capacity)
	require.NotEqual(t, a.SegmentOptions.Capacity, b.SegmentOptions.Capacity)
}

func TestWithCapacityOverridesDefault(t *testing.T) {
	o := NewDefaultOptions()
	WithCapacity(10)(&o)
	require.EqualValues(t, 10, o.SegmentOptions.Capacity)

	WithCapacity(0)(&o)
	require.EqualValues(t, 10, o.SegmentOptions.Capacity, "zero capacity should be ignored")
}

func TestWithEngineRejectsUnknownValues(t *testing.T) {
	o := NewDefaultOptions()
	WithEngine(EngineBolt)(&o)
	require.Equal(t, EngineBolt, o.Engine)

	WithEngine(EngineType("bogus"))(&o)
	require.Equal(t, EngineBolt, o.Engine, "unrecognized engine types should be ignored")
}

func TestWithDataDirTrimsAndIgnoresBlank(t *testing.T) {
	o := NewDefaultOptions()
	WithDataDir("  /tmp/data  ")(&o)
	require.Equal(t, "/tmp/data", o.DataDir)

	WithDataDir("   ")(&o)
	require.Equal(t, "/tmp/data", o.DataDir, "blank data dir should be ignored")
}
