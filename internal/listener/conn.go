package listener

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cruciblehq/compd/internal/protocol"
)

// A deadline in the past, used to unblock pending I/O.
var aLongTimeAgo = time.Unix(1, 0)

// Sequence counter for connection identifiers.
var connSeq atomic.Uint64

// Time a client has to send its whole request after connecting.
const DefaultRequestTimeout = 30 * time.Second

// One client connection carrying a single request/response exchange.
type Conn struct {
	conn           net.Conn      // Underlying transport connection.
	id             uint64        // Identifier used in logs.
	requestTimeout time.Duration // Bound on reading the request. Zero waits forever.
	closeOnce      sync.Once     // Guards Close.
	closeErr       error         // Result of the first Close.
}

// Wraps an established transport connection. The request must arrive
// within [DefaultRequestTimeout].
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, id: connSeq.Add(1), requestTimeout: DefaultRequestTimeout}
}

// Sets the bound on reading the request. Zero or negative waits forever.
func (c *Conn) SetRequestTimeout(d time.Duration) {
	c.requestTimeout = max(d, 0)
}

// Returns the connection identifier.
func (c *Conn) ID() uint64 {
	return c.id
}

// Reads the client's request.
//
// Cancelling ctx unblocks the read. A client that has not sent its whole
// request within the request timeout gets an error matching
// [os.ErrDeadlineExceeded].
func (c *Conn) ReadRequest(ctx context.Context) (*protocol.BuildRequest, error) {
	if c.requestTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.requestTimeout))
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(aLongTimeAgo)
	})

	req, err := protocol.ReadRequest(c.conn)

	// Later reads watch for the disconnect and must not inherit the deadline.
	if stop() && c.requestTimeout > 0 {
		c.conn.SetReadDeadline(time.Time{})
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnection, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return req, nil
}

// Writes the response to the client.
//
// Cancelling ctx unblocks the write.
func (c *Conn) WriteResponse(ctx context.Context, resp protocol.BuildResponse) error {
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetWriteDeadline(aLongTimeAgo)
	})
	defer stop()

	if err := protocol.WriteResponse(c.conn, resp); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrConnection, ctx.Err())
		}
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return nil
}

// Returns a channel closed when the peer disconnects or ctx is done.
//
// Detection reads from the connection in a background goroutine, so it
// must only be used once the request has been read. Any byte the client
// sends after its request counts as a disconnect. Callers tell the two
// causes apart by checking ctx.
func (c *Conn) WaitForDisconnect(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		stop := context.AfterFunc(ctx, func() {
			c.conn.SetReadDeadline(aLongTimeAgo)
		})
		defer stop()

		var buf [1]byte
		c.conn.Read(buf[:])
	}()

	return done
}

// Closes the connection. Later calls return the first call's result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
