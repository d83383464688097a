package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/cruciblehq/compd/internal/protocol"
)

// Interval between liveness checks while waiting for a process to exit.
const pollInterval = 50 * time.Millisecond

// Sends requests to the server listening on one Unix socket.
type Client struct {
	socketPath string // Path of the server's Unix socket.
}

// Creates a new client for the server at socketPath.
func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Sends req and returns the server's response.
//
// If no server is listening the error matches [ErrNotRunning]. Cancelling
// ctx aborts the exchange.
func (c *Client) Call(ctx context.Context, req *protocol.BuildRequest) (protocol.BuildResponse, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("%w: %w", ErrNotRunning, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrClient, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := protocol.WriteRequest(conn, req); err != nil {
		return nil, c.fail(ctx, err)
	}

	resp, err := protocol.ReadResponse(conn)
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	return resp, nil
}

// Asks the server to shut down and returns its process id.
//
// The server finishes in-flight compilations before exiting.
func (c *Client) Shutdown(ctx context.Context, compilerHash string) (int, error) {
	resp, err := c.Call(ctx, protocol.NewShutdownRequest(compilerHash))
	if err != nil {
		return 0, err
	}

	shutdown, ok := resp.(*protocol.ShutdownResponse)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.Type())
	}
	return int(shutdown.ServerProcessID), nil
}

// Wraps an exchange error, preferring the context error when ctx is done.
func (c *Client) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrClient, ctx.Err())
	}
	return fmt.Errorf("%w: %w", ErrClient, err)
}

// Blocks until the process pid has exited or ctx is done.
func WaitForExit(ctx context.Context, pid int) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		alive, err := processAlive(pid)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrClient, err)
		}
		if !alive {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: waiting for process %d: %w", ErrClient, pid, ctx.Err())
		case <-ticker.C:
		}
	}
}
