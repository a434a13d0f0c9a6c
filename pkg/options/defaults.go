package options

import "time"

const (
	// DefaultDataDir is the base directory kvault stores its data files in
	// when no other directory is specified.
	DefaultDataDir = "/var/lib/kvault"

	// DefaultCompactInterval is the time between automatic background
	// compaction sweeps, independent of the per-write CAPACITY trigger.
	DefaultCompactInterval = time.Hour * 5

	// DefaultCapacity is the number of uncompacted writes a generation may
	// accumulate before a compaction pass runs synchronously on the next
	// write. This mirrors the fixed threshold used by the reference engine
	// this store's recovery and compaction behavior is modeled on.
	DefaultCapacity uint64 = 1000

	// DefaultAddr is the address the server listens on when none is given.
	DefaultAddr = "127.0.0.1:4000"

	// DefaultEngine is the storage engine used when none is specified.
	DefaultEngine EngineType = EngineKvs
)

// EngineType identifies which storage backend an Options value selects.
type EngineType string

const (
	// EngineKvs is the log-structured engine (internal/engine).
	EngineKvs EngineType = "kvs"

	// EngineBolt is the embedded-B-tree engine (internal/boltengine).
	EngineBolt EngineType = "sled"
)

// DefaultSegmentDirectory is the default SegmentOptions.Directory. The
// log-structured engine does not read it; segment files are stored directly
// in DataDir.
const DefaultSegmentDirectory = "/segments"

// NewDefaultOptions returns a fresh copy of the package's default
// configuration. SegmentOptions is allocated anew on every call so that
// mutating one Options value's segment settings (WithCapacity,
// WithSegmentDir) never leaks into another.
func NewDefaultOptions() Options {
	return Options{
		DataDir:         DefaultDataDir,
		CompactInterval: DefaultCompactInterval,
		Addr:            DefaultAddr,
		Engine:          DefaultEngine,
		SegmentOptions: &segmentOptions{
			Capacity:  DefaultCapacity,
			Directory: DefaultSegmentDirectory,
		},
	}
}
