// Package engine implements the log-structured storage engine: an
// append-only, generation-segmented key-value store in the Bitcask family.
// Every mutation is appended as a self-describing JSON record to the active
// generation file; the in-memory index.Index maps each live key straight to
// the byte range holding its value, so reads never scan. Generations
// accumulate stale bytes as keys are overwritten or removed, and compact
// reclaims that space by rewriting only the live records into a fresh
// generation and directing new writes to a second fresh one.
package engine

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kvaultdb/kvault/internal/index"
	"github.com/kvaultdb/kvault/internal/ioutil"
	"github.com/kvaultdb/kvault/internal/segment"
	"github.com/kvaultdb/kvault/pkg/errors"
	"github.com/kvaultdb/kvault/pkg/filesys"
	"github.com/kvaultdb/kvault/pkg/options"
	"go.uber.org/zap"
)

var (
	// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
	ErrEngineClosed = stdErrors.New("operation failed: cannot access closed engine")
)

// Engine is the log-structured storage engine. It satisfies
// internal/kvengine.Engine structurally.
type Engine struct {
	dataDir string
	options *options.Options
	log     *zap.SugaredLogger
	closed  atomic.Bool

	idx *index.Index

	mu          sync.RWMutex
	readers     map[uint64]*ioutil.PositionedReader
	writer      *ioutil.PositionedWriter
	currentGen  uint64
	uncompacted uint64

	stopBackground chan struct{}
	backgroundWg   sync.WaitGroup
}

// Config holds the parameters needed to open an Engine.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New opens the engine rooted at config.Options.DataDir, creating the
// directory and its first generation file if none exists, and replaying
// every existing generation to rebuild the in-memory index. This is the
// only way an engine's state is reconstructed: the index itself is never
// persisted.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "engine configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	dataDir := config.Options.DataDir
	if err := filesys.CreateDir(dataDir, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, dataDir)
	}

	idx, err := index.New(ctx, &index.Config{DataDir: dataDir, Logger: config.Logger})
	if err != nil {
		return nil, err
	}

	readers, err := segment.Enumerate(dataDir)
	if err != nil {
		return nil, err
	}

	var currentGen uint64
	for gen := range readers {
		if gen > currentGen {
			currentGen = gen
		}
	}

	if len(readers) == 0 {
		reader, err := openReader(dataDir, currentGen)
		if err != nil {
			return nil, err
		}
		readers[currentGen] = reader
	}

	writer, err := openWriter(dataDir, currentGen)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dataDir:        dataDir,
		options:        config.Options,
		log:            config.Logger,
		idx:            idx,
		readers:        readers,
		writer:         writer,
		currentGen:     currentGen,
		stopBackground: make(chan struct{}),
	}

	uncompacted, err := e.replay()
	if err != nil {
		return nil, err
	}
	e.uncompacted = uncompacted

	e.log.Infow("engine opened", "dataDir", dataDir, "currentGen", currentGen, "uncompacted", uncompacted)

	if config.Options.CompactInterval > 0 {
		e.startBackgroundCompaction(config.Options.CompactInterval)
	}

	return e, nil
}

// replay walks every generation in ascending order, replaying each record
// into the index, and returns the number of Set records in the current
// (active) generation, superseded ones included — the engine's uncompacted
// counter.
func (e *Engine) replay() (uint64, error) {
	gens := make([]uint64, 0, len(e.readers))
	for gen := range e.readers {
		gens = append(gens, gen)
	}
	slices.Sort(gens)

	var uncompacted uint64
	for _, gen := range gens {
		reader := e.readers[gen]
		if err := reader.Seek(0); err != nil {
			return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to rewind segment for replay").
				WithDetail("generation", gen)
		}

		dec := json.NewDecoder(reader)
		var pos int64
		for {
			var rec record
			if err := dec.Decode(&rec); err != nil {
				if err == io.EOF {
					break
				}
				return 0, errors.NewParseError(err, "failed to decode record during replay").
					WithGeneration(gen)
			}
			newPos := dec.InputOffset()

			switch {
			case rec.Set != nil:
				if gen == e.currentGen {
					uncompacted++
				}
				if err := e.idx.Set(rec.Set.Key, index.Locator{Gen: gen, Pos: pos, Len: newPos - pos}); err != nil {
					return 0, err
				}
			case rec.Rm != nil:
				ok, err := e.idx.Delete(rec.Rm.Key)
				if err != nil {
					return 0, err
				}
				if !ok {
					return 0, errors.NewIntegrityError(rec.Rm.Key, gen, "replayed removal of a key with no prior entry").
						WithDetail("position", pos)
				}
			}
			pos = newPos
		}
	}

	return uncompacted, nil
}

// Set stores value under key. If the active generation has accumulated at
// least CAPACITY uncompacted writes, a compaction pass runs first.
func (e *Engine) Set(key, value string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.uncompacted >= e.capacity() {
		if err := e.compactLocked(); err != nil {
			return err
		}
	}

	rec := newSetRecord(key, value)
	data, err := rec.encode()
	if err != nil {
		return errors.NewParseError(err, "failed to encode set record").WithKey(key)
	}

	pos := e.writer.Pos()
	if _, err := e.writer.Write(data); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write set record").WithDetail("key", key)
	}
	if err := e.writer.Flush(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to flush set record").WithDetail("key", key)
	}

	if err := e.idx.Set(key, index.Locator{Gen: e.currentGen, Pos: pos, Len: e.writer.Pos() - pos}); err != nil {
		return err
	}
	e.uncompacted++

	return nil
}

// Get returns key's current value, or ("", false, nil) if key has no live entry.
func (e *Engine) Get(key string) (string, bool, error) {
	if e.closed.Load() {
		return "", false, ErrEngineClosed
	}

	loc, ok, err := e.idx.Get(key)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	reader, ok := e.readers[loc.Gen]
	if !ok {
		return "", false, errors.NewEngineError(nil, errors.ErrorCodeIndexInvalidSegmentID, "locator references a generation with no open reader").
			WithKey(key).
			WithGeneration(loc.Gen)
	}

	if err := reader.Seek(loc.Pos); err != nil {
		return "", false, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek to record").WithDetail("key", key)
	}

	var rec record
	if err := json.NewDecoder(io.LimitReader(reader, loc.Len)).Decode(&rec); err != nil {
		return "", false, errors.NewParseError(err, "failed to decode record").WithKey(key)
	}
	if rec.Set == nil {
		return "", false, errors.NewIntegrityError(key, loc.Gen, "locator did not decode to a set record").
			WithDetail("position", loc.Pos)
	}

	return rec.Set.Value, true, nil
}

// Remove deletes key. It returns an error if key has no live entry.
func (e *Engine) Remove(key string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	ok, err := e.idx.Delete(key)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewKeyNotFoundError(key)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec := newRmRecord(key)
	data, err := rec.encode()
	if err != nil {
		return errors.NewParseError(err, "failed to encode remove record").WithKey(key)
	}

	if _, err := e.writer.Write(data); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write remove record").WithDetail("key", key)
	}
	return e.writer.Flush()
}

// compactLocked rewrites every live record into two fresh generations: the
// records go into currentGen+1, and currentGen jumps to currentGen+2 so new
// writes never land in the generation still being read by in-flight Gets.
// Callers must hold e.mu.
func (e *Engine) compactLocked() error {
	compactionGen := e.currentGen + 1
	newCurrentGen := e.currentGen + 2

	compactionWriter, err := openWriter(e.dataDir, compactionGen)
	if err != nil {
		return err
	}
	compactionReader, err := openReader(e.dataDir, compactionGen)
	if err != nil {
		return err
	}
	e.readers[compactionGen] = compactionReader

	relocated := make(map[string]index.Locator)
	rangeErr := e.idx.Range(func(key string, loc index.Locator) error {
		reader, ok := e.readers[loc.Gen]
		if !ok {
			return errors.NewEngineError(nil, errors.ErrorCodeIndexInvalidSegmentID, "compaction could not find reader for generation").
				WithKey(key).
				WithGeneration(loc.Gen)
		}
		if err := reader.Seek(loc.Pos); err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek during compaction").WithDetail("key", key)
		}

		newPos := compactionWriter.Pos()
		n, err := io.Copy(compactionWriter, io.LimitReader(reader, loc.Len))
		if err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to copy record during compaction").WithDetail("key", key)
		}

		relocated[key] = index.Locator{Gen: compactionGen, Pos: newPos, Len: n}
		return nil
	})
	if rangeErr != nil {
		return rangeErr
	}

	if err := compactionWriter.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to flush compaction writer")
	}

	for key, loc := range relocated {
		if err := e.idx.Set(key, loc); err != nil {
			return err
		}
	}

	newWriter, err := openWriter(e.dataDir, newCurrentGen)
	if err != nil {
		return err
	}
	newCurrentReader, err := openReader(e.dataDir, newCurrentGen)
	if err != nil {
		return err
	}
	e.readers[newCurrentGen] = newCurrentReader

	stale := make([]uint64, 0, len(e.readers))
	for gen := range e.readers {
		if gen < compactionGen {
			stale = append(stale, gen)
		}
	}
	for _, gen := range stale {
		if reader, ok := e.readers[gen]; ok {
			reader.Close()
			delete(e.readers, gen)
		}
		if err := os.Remove(segment.Path(e.dataDir, gen)); err != nil && !os.IsNotExist(err) {
			e.log.Errorw("failed to remove stale segment", "generation", gen, "error", err)
		}
	}

	if err := e.writer.Close(); err != nil {
		e.log.Errorw("failed to close previous segment writer", "generation", e.currentGen, "error", err)
	}
	e.writer = newWriter
	e.currentGen = newCurrentGen
	e.uncompacted = 0

	e.log.Infow("compaction complete", "compactionGen", compactionGen, "newCurrentGen", newCurrentGen, "liveKeys", len(relocated))
	return nil
}

// startBackgroundCompaction periodically triggers a compaction pass even if
// CAPACITY hasn't been reached, so a low-write-volume engine still reclaims
// space from removed keys.
func (e *Engine) startBackgroundCompaction(interval time.Duration) {
	e.backgroundWg.Add(1)
	go func() {
		defer e.backgroundWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-e.stopBackground:
				return
			case <-ticker.C:
				e.mu.Lock()
				if e.uncompacted > 0 {
					if err := e.compactLocked(); err != nil {
						e.log.Errorw("background compaction failed", "error", err)
					}
				}
				e.mu.Unlock()
			}
		}
	}()
}

// capacity returns the configured uncompacted-write threshold.
func (e *Engine) capacity() uint64 {
	if e.options.SegmentOptions != nil && e.options.SegmentOptions.Capacity > 0 {
		return e.options.SegmentOptions.Capacity
	}
	return options.DefaultCapacity
}

// Close gracefully shuts down the engine, stopping background compaction
// and releasing all open file handles.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	close(e.stopBackground)
	e.backgroundWg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	if err := e.writer.Close(); err != nil {
		firstErr = err
	}
	for _, reader := range e.readers {
		if err := reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := e.idx.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	e.log.Infow("engine closed")
	return firstErr
}

func openWriter(dataDir string, gen uint64) (*ioutil.PositionedWriter, error) {
	path := segment.Path(dataDir, gen)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, fmt.Sprintf("%d.log", gen))
	}
	writer, err := ioutil.NewPositionedWriter(f)
	if err != nil {
		f.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to position segment writer").WithPath(path)
	}
	return writer, nil
}

func openReader(dataDir string, gen uint64) (*ioutil.PositionedReader, error) {
	path := segment.Path(dataDir, gen)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, fmt.Sprintf("%d.log", gen))
	}
	reader, err := ioutil.NewPositionedReader(f)
	if err != nil {
		f.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to position segment reader").WithPath(path)
	}
	return reader, nil
}
