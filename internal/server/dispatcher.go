package server

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/cruciblehq/compd/internal/listener"
)

// Source of client connections for the dispatcher.
type ConnectionHost interface {
	BeginListening(ctx context.Context) error
	Accepted() <-chan listener.Result
	EndListening()
}

// Owns the server state and schedules all connection work.
//
// The fields after allowed belong to the dispatch loop. Handlers never
// touch them and report back through [CompletionData] instead.
type dispatcher struct {
	host       ConnectionHost // Connection source.
	handler    *handler       // Serves accepted connections.
	gcInterval time.Duration  // Idle period between GC hints. Zero disables.
	metrics    *Metrics       // Dispatcher metrics.
	allowed    atomic.Bool    // Mirrors state == Running for handlers.

	state      State         // Current lifecycle state.
	keepAlive  time.Duration // Effective keep-alive. Negative disables the idle timeout.
	overridden bool          // A client has replaced the configured keep-alive.
	inflight   int           // Connections being served.
	served     int           // Connections finished.
	listening  bool          // The host has been started and not yet ended.
}

// Creates a dispatcher in the [Running] state.
func newDispatcher(host ConnectionHost, h *handler, keepAlive, gcInterval time.Duration, m *Metrics) *dispatcher {
	d := &dispatcher{
		host:       host,
		handler:    h,
		gcInterval: gcInterval,
		metrics:    m,
		keepAlive:  keepAlive,
	}
	d.allowed.Store(true)
	h.allowed = d.allowed.Load
	m.setState(Running)
	return d
}

// Serves connections until the server reaches [Completed].
//
// The server leaves [Running] when the keep-alive elapses with no
// connections, when a connection ends in [RequestError] or asks for
// shutdown, or when ctx is cancelled. Cancelling ctx also cancels every
// in-flight connection. Returns an error only if listening fails to start.
func (d *dispatcher) run(ctx context.Context) error {
	if err := d.host.BeginListening(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrServer, err)
	}
	d.listening = true
	defer d.endListening()

	completions := make(chan CompletionData)
	done := ctx.Done()

	var idle, gc *time.Timer
	defer func() {
		stopTimer(idle)
		stopTimer(gc)
	}()

	for {
		if d.state == ShuttingDown && d.inflight == 0 {
			d.setState(Completed)
			break
		}

		var accepted <-chan listener.Result
		if d.state == Running {
			accepted = d.host.Accepted()
		}

		if d.state == Running && d.inflight == 0 {
			if idle == nil && d.idleTimeoutArmed() {
				idle = time.NewTimer(d.keepAlive)
			}
			if gc == nil && d.gcInterval > 0 {
				gc = time.NewTimer(d.gcInterval)
			}
		} else {
			idle = stopTimer(idle)
			gc = stopTimer(gc)
		}

		select {
		case r := <-accepted:
			if r.Err != nil {
				slog.Warn("failed to accept connection", "error", r.Err)
				continue
			}
			idle = stopTimer(idle)
			gc = stopTimer(gc)
			d.inflight++
			d.metrics.setInflight(d.inflight)
			go func(conn *listener.Conn) {
				completions <- d.handler.handle(ctx, conn)
			}(r.Conn)

		case c := <-completions:
			d.inflight--
			d.served++
			d.metrics.setInflight(d.inflight)
			d.complete(c)

		case <-timerC(idle):
			idle = nil
			slog.Info("keep-alive elapsed", "keepalive", d.keepAlive)
			d.beginShutdown("idle")

		case <-timerC(gc):
			gc = nil
			debug.FreeOSMemory()
			d.metrics.gcHinted()

		case <-done:
			done = nil
			d.beginShutdown("cancelled")
		}
	}

	slog.Info("server completed", "served", d.served)
	return nil
}

// Applies the outcome of a finished connection.
func (d *dispatcher) complete(c CompletionData) {
	d.metrics.completed(c.Reason)

	if c.NewKeepAlive != nil {
		d.updateKeepAlive(*c.NewKeepAlive)
	}

	switch {
	case c.ShutdownRequested:
		d.beginShutdown("shutdown requested")
	case c.Reason == RequestError:
		d.beginShutdown("request error")
	}
}

// Adopts a client keep-alive if it is the first override or longer than
// the current one. Ignored once the server is shutting down.
func (d *dispatcher) updateKeepAlive(keepAlive time.Duration) {
	if d.state != Running {
		return
	}
	if d.overridden && keepAlive <= d.keepAlive {
		return
	}
	d.keepAlive = keepAlive
	d.overridden = true
	slog.Debug("keep-alive updated", "keepalive", keepAlive)
}

// Reports whether the idle timer may run.
//
// A zero keep-alive means serve one request then exit, so the timer waits
// for the first connection to finish.
func (d *dispatcher) idleTimeoutArmed() bool {
	if d.keepAlive < 0 {
		return false
	}
	return d.keepAlive > 0 || d.served > 0
}

// Moves from [Running] to [ShuttingDown] and stops accepting connections.
func (d *dispatcher) beginShutdown(reason string) {
	if d.state != Running {
		return
	}
	slog.Info("shutting down", "reason", reason, "inflight", d.inflight)
	d.allowed.Store(false)
	d.setState(ShuttingDown)
	d.endListening()
}

func (d *dispatcher) endListening() {
	if d.listening {
		d.listening = false
		d.host.EndListening()
	}
}

func (d *dispatcher) setState(s State) {
	d.state = s
	d.metrics.setState(s)
}

// Stops t if set. Always returns nil so callers can clear their reference.
func stopTimer(t *time.Timer) *time.Timer {
	if t != nil {
		t.Stop()
	}
	return nil
}

// Returns the channel of t, or nil so a select case never fires.
func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
