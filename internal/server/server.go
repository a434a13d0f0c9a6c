// Package server implements the TCP front end described in spec.md §4.6 and
// §6: it binds an address, accepts connections, and fans each one out over
// an internal/pool.Pool to a handler that decodes a stream of
// internal/protocol.Command values and drives a shared internal/kvengine.Engine.
package server

import (
	"encoding/json"
	"io"
	"net"
	"sync/atomic"

	"github.com/kvaultdb/kvault/internal/kvengine"
	"github.com/kvaultdb/kvault/internal/pool"
	"github.com/kvaultdb/kvault/internal/protocol"
	"github.com/kvaultdb/kvault/pkg/errors"
	"github.com/kvaultdb/kvault/pkg/filesys"
	"github.com/kvaultdb/kvault/pkg/options"
	"go.uber.org/zap"
)

// DefaultConfFileName is the configuration-guard file spec.md §4.6/§6
// names, created in the server's working directory on first start.
const DefaultConfFileName = "conf"

// Server accepts TCP connections at Addr and dispatches each one, via Pool,
// to a loop that decodes protocol.Command values and drives Engine.
type Server struct {
	addr       string
	confPath   string
	engine     kvengine.Engine
	engineType options.EngineType
	pool       pool.Pool
	log        *zap.SugaredLogger

	listener net.Listener
	closed   atomic.Bool
}

// Config carries the parameters needed to construct a Server.
type Config struct {
	Addr       string
	Engine     kvengine.Engine
	EngineType options.EngineType
	Pool       pool.Pool
	Logger     *zap.SugaredLogger

	// ConfPath overrides where the configuration guard file (spec.md §4.6)
	// is read from and written to. Defaults to DefaultConfFileName in the
	// process's working directory; tests set this to a temp path so
	// concurrent test runs never share one "conf" file.
	ConfPath string
}

// New constructs a Server. It does not bind the listening socket or touch
// the configuration guard file; both happen in Run.
func New(config *Config) (*Server, error) {
	if config == nil || config.Engine == nil || config.Pool == nil || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "server configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	addr := config.Addr
	if addr == "" {
		addr = options.DefaultAddr
	}

	confPath := config.ConfPath
	if confPath == "" {
		confPath = DefaultConfFileName
	}

	return &Server{
		addr:       addr,
		confPath:   confPath,
		engine:     config.Engine,
		engineType: config.EngineType,
		pool:       config.Pool,
		log:        config.Logger,
	}, nil
}

// Run verifies the "conf" configuration guard, binds the listening socket,
// and accepts connections until Close is called. Each accepted connection is
// handed to s.pool as one job.
func (s *Server) Run() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Listen verifies the configuration guard and binds the listening socket,
// without entering the accept loop. Splitting this out of Run lets callers
// (tests, in particular) observe the bound address — useful when Config.Addr
// requests an ephemeral port — before connections start arriving.
func (s *Server) Listen() error {
	if err := s.verifyConf(); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to bind listener").WithPath(s.addr)
	}
	s.listener = listener

	s.log.Infow("server listening", "addr", s.Addr(), "engine", s.engineType)
	return nil
}

// Serve runs the accept loop against a listener already bound by Listen. It
// returns nil once Close has stopped the listener; any other accept error is
// logged and the loop keeps accepting.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			s.log.Errorw("accept failed", "error", err)
			continue
		}

		s.pool.Spawn(func() {
			s.serve(conn)
		})
	}
}

// verifyConf implements spec.md §4.6's configuration guard: if "conf" is
// empty (including just-created), this server's engine type is recorded
// into it; otherwise the recorded value must match, or the server refuses
// to start.
func (s *Server) verifyConf() error {
	exists, err := filesys.Exists(s.confPath)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat configuration file").WithPath(s.confPath)
	}

	if !exists {
		return s.writeConf()
	}

	contents, err := filesys.ReadFile(s.confPath)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read configuration file").WithPath(s.confPath)
	}
	if len(contents) == 0 {
		return s.writeConf()
	}

	var recorded options.EngineType
	if err := json.Unmarshal(contents, &recorded); err != nil {
		return errors.NewParseError(err, "configuration file does not contain a valid engine type").WithDetail("path", s.confPath)
	}

	if recorded != s.engineType {
		return errors.NewConfigMismatchError(string(recorded), string(s.engineType))
	}
	return nil
}

func (s *Server) writeConf() error {
	data, err := json.Marshal(s.engineType)
	if err != nil {
		return errors.NewParseError(err, "failed to encode engine type").WithDetail("engine", string(s.engineType))
	}
	if err := filesys.WriteFile(s.confPath, 0644, data); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write configuration file").WithPath(s.confPath)
	}
	return nil
}

// serve handles one connection end to end: it decodes a stream of
// protocol.Command values, drives s.engine, and writes one
// protocol.Response per command, flushing after each. It returns when the
// client closes the connection or an I/O error occurs.
func (s *Server) serve(conn net.Conn) {
	defer conn.Close()

	peer := conn.RemoteAddr().String()
	dec := json.NewDecoder(conn)

	for {
		var cmd protocol.Command
		if err := dec.Decode(&cmd); err != nil {
			if err != io.EOF {
				s.log.Errorw("failed to decode command", "peer", peer, "error", err)
			}
			return
		}

		resp := s.dispatch(cmd)

		data, err := resp.Encode()
		if err != nil {
			s.log.Errorw("failed to encode response", "peer", peer, "error", err)
			return
		}
		if _, err := conn.Write(data); err != nil {
			s.log.Errorw("failed to write response", "peer", peer, "error", err)
			return
		}
	}
}

// dispatch applies one decoded Command to s.engine and builds the matching
// Response, reconciling the Get-absence Open Question from spec.md §9: a
// Get miss is reported the same way remove-of-unknown-key is, as the
// "Key not found" error message, even though internal/kvengine.Engine.Get
// itself never returns an error for an absent key.
func (s *Server) dispatch(cmd protocol.Command) protocol.Response {
	switch {
	case cmd.Set != nil:
		if err := s.engine.Set(cmd.Set.Key, cmd.Set.Value); err != nil {
			return protocol.ErrResponse(err.Error())
		}
		return protocol.OkResponse()

	case cmd.Get != nil:
		value, ok, err := s.engine.Get(cmd.Get.Key)
		if err != nil {
			return protocol.ErrResponse(err.Error())
		}
		if !ok {
			return protocol.ErrResponse(protocol.KeyNotFoundMessage)
		}
		return protocol.OkValueResponse(value)

	case cmd.Rm != nil:
		if err := s.engine.Remove(cmd.Rm.Key); err != nil {
			if ie, ok := errors.AsIndexError(err); ok && ie.Code() == errors.ErrorCodeIndexKeyNotFound {
				return protocol.ErrResponse(protocol.KeyNotFoundMessage)
			}
			return protocol.ErrResponse(err.Error())
		}
		return protocol.OkResponse()

	default:
		return protocol.ErrResponse("malformed command")
	}
}

// Addr returns the address the server is bound to. It is only meaningful
// after Run has successfully bound the listening socket — useful when
// Config.Addr requested an ephemeral port ("host:0").
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Close stops accepting new connections, releases the pool, and closes the
// engine. Whether it waits for in-flight connections to finish depends on the
// pool's Close: with SharedQueuePool or ConcPool it does, with NaivePool it
// does not.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var firstErr error
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			firstErr = err
		}
	}
	if err := s.pool.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.engine.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	s.log.Infow("server closed")
	return firstErr
}
