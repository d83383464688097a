// Package server implements the compd build server.
//
// A [Server] takes the singleton lock for its pipe name, starts listening
// on the pipe's Unix socket, and runs a dispatcher until the server has
// completed. The dispatcher owns the server state ([Running],
// [ShuttingDown], [Completed]) and is the only code that changes it. Each
// loop iteration waits for the first of a new connection, a finished
// connection, the idle keep-alive timer, the GC hint timer, or
// cancellation. The timers run only while no connection is in flight.
//
// Each connection carries one request and one response. The handler checks
// the protocol version, then the compiler hash, answers shutdown requests
// and rejects compilations once the server is shutting down. Compilations
// run on their own goroutine and race the client disconnecting; if the
// client goes first the compilation is cancelled and not waited for. The
// handler reports a [CompletionData] back to the dispatcher, which may
// extend the keep-alive, or start shutting down on errors and shutdown
// requests.
//
// Example usage:
//
//	srv, err := server.New(server.Config{
//	    SocketPath:   paths.Socket(pipe),
//	    LockPath:     paths.LockFile(pipe),
//	    KeepAlive:    10 * time.Minute,
//	    Compiler:     compiler,
//	    CompilerHash: internal.CompilerHash(),
//	})
//	if err != nil {
//	    return err
//	}
//
//	return srv.Run(ctx)
package server
