// Package listener accepts client connections on the server's Unix socket.
//
// [Listener.BeginListening] binds the socket and starts several accept
// loops, [DefaultAcceptLoops] unless configured otherwise. Each accepted
// connection is checked against the server's own user before any of its
// bytes are read, wrapped in a [Conn], and queued on [Listener.Accepted].
// Accept failures are queued as a [Result] carrying the error and the loop
// keeps accepting. Connections are delivered in the order the loops finish
// accepting them, which with several loops may differ from arrival order.
//
// [Listener.EndListening] stops the loops, closes the socket and closes any
// connection that was accepted but never taken from the queue. It is safe
// to call at any time, and more than once.
//
// Example usage:
//
//	l := listener.New(listener.Config{Path: paths.Socket(pipe)})
//	if err := l.BeginListening(ctx); err != nil {
//	    return err
//	}
//	defer l.EndListening()
//
//	for r := range l.Accepted() {
//	    if r.Err != nil {
//	        slog.Warn("accept failed", "error", r.Err)
//	        continue
//	    }
//	    go handle(r.Conn)
//	}
package listener
