// Package kvault is the embeddable façade over this module's storage
// engines: a single Instance wraps whichever internal/kvengine.Engine the
// configured options.EngineType selects, so an application that wants the
// store in-process — without going through internal/server's TCP front end
// — can depend on this package alone.
package kvault

import (
	"context"
	"path/filepath"

	"github.com/kvaultdb/kvault/internal/boltengine"
	"github.com/kvaultdb/kvault/internal/engine"
	"github.com/kvaultdb/kvault/internal/kvengine"
	"github.com/kvaultdb/kvault/pkg/errors"
	"github.com/kvaultdb/kvault/pkg/logger"
	"github.com/kvaultdb/kvault/pkg/options"
	"go.uber.org/zap"
)

// Instance is the primary entry point for embedding this store directly in
// a Go process. It encapsulates the chosen engine and the options that
// configured it.
type Instance struct {
	engine  kvengine.Engine
	options *options.Options
}

// NewInstance opens an Instance backed by whichever engine opts.Engine
// selects, rooted at opts.DataDir (service is used only to tag log lines).
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	eng, err := openEngine(ctx, &defaultOpts, log.With("component", "kvault"))
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &defaultOpts}, nil
}

// openEngine constructs the kvengine.Engine implementation opts.Engine
// selects. It is the one place this module maps options.EngineType onto a
// concrete backend.
func openEngine(ctx context.Context, opts *options.Options, log *zap.SugaredLogger) (kvengine.Engine, error) {
	switch opts.Engine {
	case options.EngineBolt:
		return boltengine.New(&boltengine.Config{
			Path:   filepath.Join(opts.DataDir, "kvault.db"),
			Logger: log,
		})
	case options.EngineKvs, "":
		return engine.New(ctx, &engine.Config{Options: opts, Logger: log})
	default:
		return nil, errors.NewParseError(nil, "unrecognized engine type").
			WithDetail("engine", string(opts.Engine))
	}
}

// Set stores value under key, replacing any existing value.
func (i *Instance) Set(ctx context.Context, key, value string) error {
	return i.engine.Set(key, value)
}

// Get retrieves the value associated with key. It returns false (not an
// error) when key has no live entry, matching internal/kvengine.Engine's
// contract.
func (i *Instance) Get(ctx context.Context, key string) (string, bool, error) {
	return i.engine.Get(key)
}

// Delete removes key. It returns an error if key has no live entry.
func (i *Instance) Delete(ctx context.Context, key string) error {
	return i.engine.Remove(key)
}

// Close gracefully shuts down the Instance, releasing all resources the
// underlying engine holds.
func (i *Instance) Close(ctx context.Context) error {
	return i.engine.Close()
}
