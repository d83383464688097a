package server

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cruciblehq/compd/internal/listener"
	"github.com/cruciblehq/compd/internal/protocol"
)

const testHash = "test-hash"

// Adapts a function to the Compiler interface.
type compilerFunc func(ctx context.Context, run protocol.RunRequest) protocol.BuildResponse

func (f compilerFunc) RunCompilation(ctx context.Context, run protocol.RunRequest) protocol.BuildResponse {
	return f(ctx, run)
}

// Returns a compiler that completes every request with exit code 0.
func okCompiler() Compiler {
	return compilerFunc(func(context.Context, protocol.RunRequest) protocol.BuildResponse {
		return &protocol.CompletedResponse{Output: "ok\n"}
	})
}

// A connection host fed by the test through in-memory pipes.
type fakeHost struct {
	results  chan listener.Result
	begun    atomic.Int32
	ended    atomic.Int32
	beginErr error
}

func newFakeHost() *fakeHost {
	return &fakeHost{results: make(chan listener.Result, 16)}
}

func (h *fakeHost) BeginListening(context.Context) error {
	h.begun.Add(1)
	return h.beginErr
}

func (h *fakeHost) Accepted() <-chan listener.Result {
	return h.results
}

func (h *fakeHost) EndListening() {
	h.ended.Add(1)
}

// Queues a new connection and returns the client end.
func (h *fakeHost) dial(t *testing.T) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	h.results <- listener.Result{Conn: listener.NewConn(server)}
	return client
}

// Sends req over conn and reads the response.
func roundTrip(t *testing.T, conn net.Conn, req *protocol.BuildRequest) protocol.BuildResponse {
	t.Helper()
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	if err := protocol.WriteRequest(conn, req); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	resp, err := protocol.ReadResponse(conn)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	return resp
}

// Returns a compile request from the test client.
func compileRequest(keepAlive string) *protocol.BuildRequest {
	return protocol.NewCompileRequest(protocol.CSharp, protocol.RunRequest{
		WorkingDirectory: "/src",
		TempDirectory:    "/tmp",
		Arguments:        []string{"Program.cs"},
	}, testHash, keepAlive)
}

func newTestHandler(compiler Compiler, allowed bool) *handler {
	return &handler{
		compiler:     compiler,
		compilerHash: testHash,
		allowed:      func() bool { return allowed },
		metrics:      NewMetrics(nil),
	}
}

// Waits for the result of run, failing the test after a timeout.
func waitRun(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not complete")
		return nil
	}
}
