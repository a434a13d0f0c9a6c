// Command kvs-client sends a single set/get/rm request to a kvs-server and
// prints the result, per spec.md §6's CLI surface.
package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/kvaultdb/kvault/internal/protocol"
	"github.com/kvaultdb/kvault/pkg/options"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "kvs-client",
		Short: "Talks to a kvault server over TCP",
	}

	var addr string
	addrFlag := func(c *cobra.Command) {
		c.Flags().StringVar(&addr, "addr", options.DefaultAddr, "IP:PORT of the server")
	}

	setCmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a key to a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return runSet(addr, args[0], args[1])
		},
	}
	addrFlag(setCmd)

	getCmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Get a key's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runGet(addr, args[0])
		},
	}
	addrFlag(getCmd)

	rmCmd := &cobra.Command{
		Use:   "rm KEY",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runRm(addr, args[0])
		},
	}
	addrFlag(rmCmd)

	root.AddCommand(setCmd, getCmd, rmCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSet(addr, key, value string) error {
	resp, err := roundTrip(addr, protocol.NewSetCommand(key, value))
	if err != nil {
		return err
	}
	if !resp.IsOk() {
		msg, _ := resp.ErrorMessage()
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
	return nil
}

func runGet(addr, key string) error {
	resp, err := roundTrip(addr, protocol.NewGetCommand(key))
	if err != nil {
		return err
	}
	if !resp.IsOk() {
		msg, _ := resp.ErrorMessage()
		fmt.Println(msg)
		os.Exit(1)
	}
	value, _ := resp.Value()
	fmt.Println(value)
	return nil
}

func runRm(addr, key string) error {
	resp, err := roundTrip(addr, protocol.NewRmCommand(key))
	if err != nil {
		return err
	}
	if !resp.IsOk() {
		msg, _ := resp.ErrorMessage()
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
	return nil
}

// roundTrip opens a fresh connection to addr, writes one command, and
// decodes exactly one response — the CLI makes one request per invocation,
// unlike the server's long-lived per-connection command stream.
func roundTrip(addr string, cmd protocol.Command) (protocol.Response, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	data, err := cmd.Encode()
	if err != nil {
		return protocol.Response{}, fmt.Errorf("failed to encode command: %w", err)
	}
	if _, err := conn.Write(data); err != nil {
		return protocol.Response{}, fmt.Errorf("failed to send command: %w", err)
	}

	var resp protocol.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return protocol.Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}
