package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cruciblehq/compd/internal/paths"
)

const (

	// Upper bound on the number of concurrent accept loops.
	maxAcceptLoops = 4

	// Pause after a failed accept before the loop accepts again.
	acceptRetryDelay = 10 * time.Millisecond
)

// Returns the default number of accept loops, min(4, GOMAXPROCS).
func DefaultAcceptLoops() int {
	return min(maxAcceptLoops, goruntime.GOMAXPROCS(0))
}

// Holds listener configuration.
type Config struct {
	Path           string        // Path of the Unix socket.
	AcceptLoops    int           // Number of accept loops. Zero uses [DefaultAcceptLoops].
	RequestTimeout time.Duration // Bound on reading each request. Zero uses [DefaultRequestTimeout]; negative waits forever.
}

// Outcome of one accept: a connection, or the error that replaced it.
type Result struct {
	Conn *Conn // Accepted connection, nil when Err is set.
	Err  error // Accept or identity failure.
}

// Accepts connections on a Unix socket with several concurrent loops.
type Listener struct {
	path    string                    // Path of the Unix socket.
	loops   int                       // Number of accept loops.
	timeout time.Duration             // Request timeout applied to each connection.
	results chan Result               // Accepted connections and accept errors.
	verify  func(*net.UnixConn) error // Peer identity check.
	mu      sync.Mutex                // Protects the fields below.
	ln      *net.UnixListener         // Bound socket, nil until BeginListening.
	cancel  context.CancelFunc        // Stops the accept loops.
	group   *errgroup.Group           // Running accept loops.
	begun   bool                      // BeginListening has succeeded.
	ended   bool                      // EndListening has been called.
}

// Creates a new listener. The socket is not bound until BeginListening.
func New(cfg Config) *Listener {
	loops := cfg.AcceptLoops
	if loops <= 0 {
		loops = DefaultAcceptLoops()
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}

	return &Listener{
		path:    cfg.Path,
		loops:   loops,
		timeout: timeout,
		results: make(chan Result, loops),
		verify:  verifyPeer,
	}
}

// Binds the socket and starts the accept loops.
//
// A stale socket file from an earlier run is removed first; callers must
// hold the singleton lock for the pipe name before calling. The loops run
// until ctx is cancelled or EndListening is called.
func (l *Listener) BeginListening(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ended {
		return ErrListenerClosed
	}
	if l.begun {
		return fmt.Errorf("%w: already listening on %s", ErrListener, l.path)
	}

	ln, err := listen(l.path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)

	for i := 0; i < l.loops; i++ {
		i := i
		group.Go(func() error {
			l.acceptLoop(ctx, ln, i)
			return nil
		})
	}

	// Closing the socket is what unblocks Accept.
	context.AfterFunc(ctx, func() {
		ln.Close()
	})

	l.ln = ln
	l.cancel = cancel
	l.group = group
	l.begun = true

	slog.Info("listening", "path", l.path, "loops", l.loops)

	return nil
}

// Returns the queue of accepted connections.
//
// The channel is never closed. Nothing more is delivered once
// EndListening has returned.
func (l *Listener) Accepted() <-chan Result {
	return l.results
}

// Stops accepting and releases queued connections.
//
// Blocks until every accept loop has returned. Safe to call before
// BeginListening, concurrently with accepts in progress, and more than
// once.
func (l *Listener) EndListening() {
	l.mu.Lock()
	if l.ended {
		l.mu.Unlock()
		return
	}
	l.ended = true
	cancel, group := l.cancel, l.group
	l.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	group.Wait()

	for {
		select {
		case r := <-l.results:
			if r.Conn != nil {
				r.Conn.Close()
			}
		default:
			os.Remove(l.path)
			slog.Debug("stopped listening", "path", l.path)
			return
		}
	}
}

// Accepts connections until ctx is cancelled.
//
// Each failure is queued and the loop continues; no error ends the loop
// other than the socket being closed.
func (l *Listener) acceptLoop(ctx context.Context, ln *net.UnixListener, loop int) {
	for {
		conn, err := ln.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			if !l.deliver(ctx, Result{Err: fmt.Errorf("%w: accept: %w", ErrListener, err)}) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}

		if err := l.verify(conn); err != nil {
			conn.Close()
			if !l.deliver(ctx, Result{Err: err}) {
				return
			}
			continue
		}

		c := NewConn(conn)
		c.SetRequestTimeout(l.timeout)
		slog.Debug("connection accepted", "conn", c.ID(), "loop", loop)

		if !l.deliver(ctx, Result{Conn: c}) {
			c.Close()
			return
		}
	}
}

// Queues r, returning false if ctx ended first.
func (l *Listener) deliver(ctx context.Context, r Result) bool {
	select {
	case l.results <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// Binds the Unix socket at path, replacing any stale socket file, and
// restricts it to the owner.
func listen(path string) (*net.UnixListener, error) {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListener, err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: removing stale socket: %w", ErrListener, err)
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListener, err)
	}

	if err := os.Chmod(path, paths.DefaultFileMode); err != nil {
		ln.Close()
		return nil, fmt.Errorf("%w: chmod socket: %w", ErrListener, err)
	}

	return ln, nil
}

// Rejects connections from any user other than the server's own.
func verifyPeer(conn *net.UnixConn) error {
	uid, err := peerUID(conn)
	if errors.Is(err, errPeerCredUnsupported) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPeerIdentity, err)
	}
	if uid != os.Getuid() {
		return fmt.Errorf("%w: uid %d", ErrPeerIdentity, uid)
	}
	return nil
}
