// Command kvs-server runs the TCP front end described in spec.md §6: it
// binds an address, selects an engine backend, and serves set/get/rm
// requests until terminated.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kvaultdb/kvault/internal/boltengine"
	"github.com/kvaultdb/kvault/internal/engine"
	"github.com/kvaultdb/kvault/internal/kvengine"
	"github.com/kvaultdb/kvault/internal/pool"
	"github.com/kvaultdb/kvault/internal/server"
	"github.com/kvaultdb/kvault/pkg/logger"
	"github.com/kvaultdb/kvault/pkg/options"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	addr       string
	engineName string
	workers    int
)

func main() {
	cmd := &cobra.Command{
		Use:   "kvs-server",
		Short: "Runs the kvault TCP server",
		RunE:  run,
	}

	cmd.Flags().StringVar(&addr, "addr", options.DefaultAddr, "IP:PORT to listen on")
	cmd.Flags().StringVarP(&engineName, "engine", "e", string(options.DefaultEngine), "storage engine: kvs or sled")
	cmd.Flags().IntVar(&workers, "workers", 4, "thread pool size")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := logger.New("kvs-server")

	engineType := options.EngineType(engineName)
	if engineType != options.EngineKvs && engineType != options.EngineBolt {
		return fmt.Errorf("unrecognized engine %q: must be %q or %q", engineName, options.EngineKvs, options.EngineBolt)
	}

	opts := options.NewDefaultOptions()
	opts.Addr = addr
	opts.Engine = engineType

	eng, err := openEngine(ctx, &opts, log.With("component", "engine"))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}

	workerPool, err := pool.NewSharedQueuePool(workers)
	if err != nil {
		return fmt.Errorf("failed to start thread pool: %w", err)
	}

	srv, err := server.New(&server.Config{
		Addr:       addr,
		Engine:     eng,
		EngineType: engineType,
		Pool:       workerPool,
		Logger:     log.With("component", "server"),
	})
	if err != nil {
		return fmt.Errorf("failed to construct server: %w", err)
	}

	log.Infow("starting kvs-server", "addr", addr, "engine", engineType, "workers", workers)
	return srv.Run()
}

// openEngine maps opts.Engine onto a concrete kvengine.Engine, the same
// selection pkg/kvault.openEngine performs for in-process embedding.
func openEngine(ctx context.Context, opts *options.Options, log *zap.SugaredLogger) (kvengine.Engine, error) {
	switch opts.Engine {
	case options.EngineBolt:
		return boltengine.New(&boltengine.Config{Path: filepath.Join(opts.DataDir, "kvault.db"), Logger: log})
	default:
		return engine.New(ctx, &engine.Config{Options: opts, Logger: log})
	}
}
