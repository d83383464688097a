// Package client talks to a running compd server.
//
// A [Client] opens one connection per request, writes the request and
// reads the single response. [Client.Shutdown] asks the server to stop and
// returns its process id, which [WaitForExit] can watch until the process
// is gone.
//
// Example usage:
//
//	c := client.New(paths.Socket(pipe))
//
//	pid, err := c.Shutdown(ctx, internal.CompilerHash())
//	if err != nil {
//	    return err
//	}
//	return client.WaitForExit(ctx, pid)
package client
