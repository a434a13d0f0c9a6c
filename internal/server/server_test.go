package server

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/kvaultdb/kvault/internal/engine"
	"github.com/kvaultdb/kvault/internal/pool"
	"github.com/kvaultdb/kvault/internal/protocol"
	"github.com/kvaultdb/kvault/pkg/logger"
	"github.com/kvaultdb/kvault/pkg/options"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	o := options.NewDefaultOptions()
	o.DataDir = dir

	eng, err := engine.New(context.Background(), &engine.Config{Options: &o, Logger: logger.New("server-test")})
	require.NoError(t, err)

	p, err := pool.NewSharedQueuePool(2)
	require.NoError(t, err)

	srv, err := New(&Config{
		Addr:       "127.0.0.1:0",
		Engine:     eng,
		EngineType: options.EngineKvs,
		Pool:       p,
		Logger:     logger.New("server-test"),
		ConfPath:   filepath.Join(dir, "conf"),
	})
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	go srv.Serve()
	t.Cleanup(func() { _ = srv.Close() })

	return srv
}

func roundTrip(t *testing.T, addr string, cmd protocol.Command) protocol.Response {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	data, err := cmd.Encode()
	require.NoError(t, err)
	_, err = conn.Write(data)
	require.NoError(t, err)

	var resp protocol.Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	return resp
}

func TestSetThenGetOverWire(t *testing.T) {
	srv := newTestServer(t)

	setResp := roundTrip(t, srv.Addr(), protocol.NewSetCommand("a", "1"))
	require.True(t, setResp.IsOk())

	getResp := roundTrip(t, srv.Addr(), protocol.NewGetCommand("a"))
	require.True(t, getResp.IsOk())
	value, ok := getResp.Value()
	require.True(t, ok)
	require.Equal(t, "1", value)
}

func TestGetMissingKeyReportsKeyNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := roundTrip(t, srv.Addr(), protocol.NewGetCommand("missing"))
	require.False(t, resp.IsOk())
	msg, ok := resp.ErrorMessage()
	require.True(t, ok)
	require.Equal(t, protocol.KeyNotFoundMessage, msg)
}

func TestRemoveMissingKeyReportsError(t *testing.T) {
	srv := newTestServer(t)

	resp := roundTrip(t, srv.Addr(), protocol.NewRmCommand("missing"))
	require.False(t, resp.IsOk())
}

func TestConfMismatchAbortsStart(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "conf")

	o := options.NewDefaultOptions()
	o.DataDir = dir
	eng, err := engine.New(context.Background(), &engine.Config{Options: &o, Logger: logger.New("server-test")})
	require.NoError(t, err)

	p, err := pool.NewSharedQueuePool(1)
	require.NoError(t, err)

	first, err := New(&Config{
		Addr: "127.0.0.1:0", Engine: eng, EngineType: options.EngineKvs,
		Pool: p, Logger: logger.New("server-test"), ConfPath: confPath,
	})
	require.NoError(t, err)
	require.NoError(t, first.Listen())
	require.NoError(t, first.Close())

	eng2, err := engine.New(context.Background(), &engine.Config{Options: &o, Logger: logger.New("server-test")})
	require.NoError(t, err)
	p2, err := pool.NewSharedQueuePool(1)
	require.NoError(t, err)

	second, err := New(&Config{
		Addr: "127.0.0.1:0", Engine: eng2, EngineType: options.EngineBolt,
		Pool: p2, Logger: logger.New("server-test"), ConfPath: confPath,
	})
	require.NoError(t, err)

	err = second.Listen()
	require.Error(t, err)
}
