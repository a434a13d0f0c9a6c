// Package segment manages the set of generation files that make up a
// log-structured engine's on-disk directory: files named "<gen>.log" where
// <gen> is a base-10, non-negative, monotonically non-decreasing generation
// number. Exactly one generation is active (receives appends) at a time;
// the rest are sealed and immutable.
package segment

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kvaultdb/kvault/internal/ioutil"
	"github.com/kvaultdb/kvault/pkg/errors"
)

// Extension is the fixed suffix of every segment file.
const Extension = ".log"

// Path returns the path of the segment file for generation gen inside dir.
// It is a pure helper; it does not touch the filesystem.
func Path(dir string, gen uint64) string {
	return filepath.Join(dir, strconv.FormatUint(gen, 10)+Extension)
}

// ParseGeneration extracts the generation number from a segment filename
// (not a full path). Filenames that don't match "<u64>.log" are rejected;
// callers use that to distinguish segment files from unrelated directory
// entries.
func ParseGeneration(filename string) (uint64, bool) {
	if !strings.HasSuffix(filename, Extension) {
		return 0, false
	}
	numeric := strings.TrimSuffix(filename, Extension)
	gen, err := strconv.ParseUint(numeric, 10, 64)
	if err != nil {
		return 0, false
	}
	return gen, true
}

// Enumerate lists dir, opens every file matching "<gen>.log" for reading,
// and returns a map from generation to a positioned reader over it.
// Non-matching entries are silently ignored. dir must already exist.
func Enumerate(dir string) (map[uint64]*ioutil.PositionedReader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to list segment directory").
			WithPath(dir)
	}

	readers := make(map[uint64]*ioutil.PositionedReader, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		gen, ok := ParseGeneration(entry.Name())
		if !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		f, err := os.OpenFile(path, os.O_RDONLY, 0644)
		if err != nil {
			for _, opened := range readers {
				opened.Close()
			}
			return nil, errors.ClassifyFileOpenError(err, path, entry.Name())
		}

		reader, err := ioutil.NewPositionedReader(f)
		if err != nil {
			f.Close()
			for _, opened := range readers {
				opened.Close()
			}
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to position segment reader").
				WithPath(path)
		}
		readers[gen] = reader
	}

	return readers, nil
}
