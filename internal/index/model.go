package index

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Locator is the in-memory record of where one key's current value lives on
// disk. A Locator always describes the most recent write of its key: every
// Set replaces the previous Locator in place and every Remove deletes it, so the index never
// holds more than one Locator per live key, no matter how many stale
// versions remain in older segment files.
type Locator struct {
	// Gen identifies the generation segment file ("<Gen>.log") holding the
	// record. Generations only increase over the lifetime of an engine, so
	// Gen also orders a key's writes relative to other keys' writes without
	// needing a separate timestamp field.
	Gen uint64

	// Pos is the byte offset, within the generation file, where the record
	// begins. Paired with Len it lets a read seek straight to the record
	// instead of scanning the file from the start.
	Pos int64

	// Len is the length in bytes of the encoded record starting at Pos.
	Len int64
}

// Index is the in-memory map from key to Locator. It is the single source
// of truth for which keys are live: a key absent here is absent from the
// store, regardless of what bytes a compaction pass has yet to reclaim.
type Index struct {
	dataDir string             // Directory the index's segments live in.
	log     *zap.SugaredLogger // Structured logging.
	entries map[string]Locator // Core key -> Locator mapping.
	mu      sync.RWMutex       // Guards entries.
	closed  atomic.Bool        // Set once on Close; further use returns ErrIndexClosed.
}

// Config carries the parameters needed to construct an Index.
type Config struct {
	DataDir string             // Directory the index's segments live in.
	Logger  *zap.SugaredLogger // Logger to use; required.
}
