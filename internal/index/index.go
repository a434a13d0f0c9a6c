// Package index maintains the in-memory key -> Locator map that the
// log-structured engine consults on every read. Keeping the full key set
// resident in memory is what gives the engine O(1) lookups regardless of
// how much data has accumulated on disk; only the Locator, never the value
// itself, is held in RAM.
package index

import (
	"context"
	stdErrors "errors"

	"github.com/kvaultdb/kvault/pkg/errors"
)

var (
	// ErrIndexClosed is returned by any operation attempted after Close.
	ErrIndexClosed = stdErrors.New("operation failed: cannot access closed index")
)

// New creates an Index ready for concurrent use.
func New(ctx context.Context, config *Config) (*Index, error) {
	if config == nil || config.DataDir == "" || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "index configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	return &Index{
		log:     config.Logger,
		dataDir: config.DataDir,
		entries: make(map[string]Locator, 2048),
	}, nil
}

// Get returns the Locator for key and whether it is present.
func (idx *Index) Get(key string) (Locator, bool, error) {
	if idx.closed.Load() {
		return Locator{}, false, ErrIndexClosed
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	loc, ok := idx.entries[key]
	return loc, ok, nil
}

// Set records loc as key's current Locator, replacing whatever Locator key
// previously had.
func (idx *Index) Set(key string, loc Locator) error {
	if idx.closed.Load() {
		return ErrIndexClosed
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries[key] = loc
	return nil
}

// Delete removes key from the index. It reports whether key was present.
func (idx *Index) Delete(key string) (bool, error) {
	if idx.closed.Load() {
		return false, ErrIndexClosed
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, ok := idx.entries[key]
	delete(idx.entries, key)
	return ok, nil
}

// Len returns the number of live keys currently tracked.
func (idx *Index) Len() (int, error) {
	if idx.closed.Load() {
		return 0, ErrIndexClosed
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.entries), nil
}

// Range calls fn once for every (key, Locator) pair, in no particular
// order. It takes a snapshot under the read lock before calling fn, so fn
// may safely call back into Get/Set/Delete without deadlocking. Range is
// used by compaction to enumerate every live key while rewriting segments.
func (idx *Index) Range(fn func(key string, loc Locator) error) error {
	if idx.closed.Load() {
		return ErrIndexClosed
	}

	idx.mu.RLock()
	snapshot := make(map[string]Locator, len(idx.entries))
	for k, v := range idx.entries {
		snapshot[k] = v
	}
	idx.mu.RUnlock()

	for k, v := range snapshot {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Close gracefully shuts down the Index, releasing the entries map. Further
// use of the Index returns ErrIndexClosed.
func (idx *Index) Close() error {
	if !idx.closed.CompareAndSwap(false, true) {
		return ErrIndexClosed
	}

	idx.log.Infow("closing index")

	idx.mu.Lock()
	defer idx.mu.Unlock()

	clear(idx.entries)
	idx.entries = nil

	idx.log.Infow("index closed")
	return nil
}
