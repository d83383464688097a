package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cruciblehq/compd/internal/protocol"
)

// One client connection as seen by the handler.
type ClientConnection interface {
	ReadRequest(ctx context.Context) (*protocol.BuildRequest, error)
	WriteResponse(ctx context.Context, resp protocol.BuildResponse) error
	WaitForDisconnect(ctx context.Context) <-chan struct{}
	Close() error
}

// Runs compilations. Implementations must observe ctx cancellation.
type Compiler interface {
	RunCompilation(ctx context.Context, run protocol.RunRequest) protocol.BuildResponse
}

// Drives the protocol for one connection at a time. Holds no per-connection
// state.
type handler struct {
	compiler     Compiler    // Runs compile requests.
	compilerHash string      // Build identity clients must present.
	allowed      func() bool // Reports whether compilations are accepted.
	metrics      *Metrics    // Response counters.
}

// Serves one connection and reports how it ended.
//
// Never panics. The connection is closed exactly once on every path.
func (h *handler) handle(ctx context.Context, conn ClientConnection) (data CompletionData) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("connection handler panicked", "panic", r)
			data = CompletionData{Reason: RequestError}
		}
	}()

	req, err := conn.ReadRequest(ctx)
	if err != nil {
		slog.Warn("failed to read request", "error", err)
		return CompletionData{Reason: RequestError}
	}

	slog.Debug("request received",
		"id", req.RequestID,
		"version", req.ProtocolVersion,
		"language", req.Language,
		"arguments", len(req.Arguments),
	)

	if req.ProtocolVersion != protocol.ProtocolVersion {
		slog.Info("protocol version mismatch", "id", req.RequestID, "got", req.ProtocolVersion, "want", protocol.ProtocolVersion)
		return h.respond(ctx, conn, &protocol.MismatchedVersionResponse{}, CompletionData{Reason: RequestCompleted})
	}

	if req.CompilerHash != h.compilerHash {
		slog.Info("compiler hash mismatch", "id", req.RequestID, "got", req.CompilerHash)
		return h.respond(ctx, conn, &protocol.IncorrectHashResponse{}, CompletionData{Reason: RequestCompleted})
	}

	if req.IsShutdown() {
		slog.Info("shutdown requested", "id", req.RequestID)
		resp := &protocol.ShutdownResponse{ServerProcessID: uint32(os.Getpid())}
		return h.respond(ctx, conn, resp, CompletionData{Reason: RequestCompleted, ShutdownRequested: true})
	}

	if !h.allowed() {
		resp := &protocol.RejectedResponse{Reason: "server is shutting down"}
		return h.respond(ctx, conn, resp, CompletionData{Reason: RequestCompleted})
	}

	keepAlive := requestedKeepAlive(req)

	resp, ok := h.compile(ctx, conn, req.RunRequest())
	if !ok {
		slog.Info("client disconnected before compilation finished", "id", req.RequestID)
		return CompletionData{Reason: RequestError, NewKeepAlive: keepAlive}
	}

	return h.respond(ctx, conn, resp, CompletionData{Reason: reasonFor(resp), NewKeepAlive: keepAlive})
}

// Runs the compilation, racing it against the client disconnecting.
//
// Returns false if the client went away first, in which case the
// compilation has been told to stop and is not waited for.
func (h *handler) compile(ctx context.Context, conn ClientConnection, run protocol.RunRequest) (protocol.BuildResponse, bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan protocol.BuildResponse, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("compiler panicked", "panic", r)
				result <- &protocol.RejectedResponse{Reason: fmt.Sprintf("compiler failed: %v", r)}
			}
		}()
		resp := h.compiler.RunCompilation(ctx, run)
		if resp == nil {
			resp = &protocol.RejectedResponse{Reason: "compiler returned no response"}
		}
		result <- resp
	}()

	gone := conn.WaitForDisconnect(ctx)

	select {
	case resp := <-result:
		return resp, true
	case <-gone:
		cancel()
		return nil, false
	}
}

// Writes resp and returns data, or a [RequestError] completion if the
// write fails.
func (h *handler) respond(ctx context.Context, conn ClientConnection, resp protocol.BuildResponse, data CompletionData) CompletionData {
	if err := conn.WriteResponse(ctx, resp); err != nil {
		slog.Warn("failed to write response", "type", resp.Type(), "error", err)
		data.Reason = RequestError
		return data
	}
	h.metrics.responded(resp.Type())
	return data
}

// Returns the keep-alive the client asked for, or nil.
func requestedKeepAlive(req *protocol.BuildRequest) *time.Duration {
	seconds, ok, err := req.KeepAlive()
	if !ok {
		return nil
	}
	if err != nil {
		slog.Debug("ignoring invalid keep-alive", "id", req.RequestID, "error", err)
		return nil
	}
	d := time.Duration(seconds) * time.Second
	return &d
}
