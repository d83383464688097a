package server

import (
	"time"

	"github.com/cruciblehq/compd/internal/protocol"
)

// How a connection ended, from the dispatcher's point of view.
type CompletionReason int

const (
	RequestCompleted CompletionReason = iota // The exchange finished normally.
	RequestError                             // The exchange failed; the server should stop.
)

// Returns the string representation of the reason.
func (r CompletionReason) String() string {
	if r == RequestError {
		return "error"
	}
	return "completed"
}

// Reported by a connection handler when its connection is done.
type CompletionData struct {
	Reason            CompletionReason // Outcome of the exchange.
	NewKeepAlive      *time.Duration   // Keep-alive requested by the client, if any.
	ShutdownRequested bool             // The client asked the server to shut down.
}

// Returns the completion reason for a response produced by the compiler.
//
// An analyzer inconsistency or a rejection means the compiler host cannot
// be trusted with further work, so both end in [RequestError].
func reasonFor(resp protocol.BuildResponse) CompletionReason {
	switch resp.(type) {
	case *protocol.CompletedResponse,
		*protocol.MismatchedVersionResponse,
		*protocol.IncorrectHashResponse,
		*protocol.ShutdownResponse:
		return RequestCompleted
	case *protocol.AnalyzerInconsistencyResponse,
		*protocol.RejectedResponse:
		return RequestError
	default:
		return RequestError
	}
}
