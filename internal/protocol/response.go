package protocol

// Discriminator of a [BuildResponse] variant on the wire.
type ResponseType uint8

const (
	ResponseCompleted             ResponseType = 0x01
	ResponseMismatchedVersion     ResponseType = 0x02
	ResponseAnalyzerInconsistency ResponseType = 0x03
	ResponseShutdown              ResponseType = 0x04
	ResponseRejected              ResponseType = 0x05
	ResponseIncorrectHash         ResponseType = 0x06
)

// Returns the string representation of the response type.
func (t ResponseType) String() string {
	switch t {
	case ResponseCompleted:
		return "Completed"
	case ResponseMismatchedVersion:
		return "MismatchedVersion"
	case ResponseAnalyzerInconsistency:
		return "AnalyzerInconsistency"
	case ResponseShutdown:
		return "Shutdown"
	case ResponseRejected:
		return "Rejected"
	case ResponseIncorrectHash:
		return "IncorrectHash"
	default:
		return "Unknown"
	}
}

// A response sent from the server to a client.
//
// The set of implementations is closed: [CompletedResponse],
// [RejectedResponse], [AnalyzerInconsistencyResponse],
// [MismatchedVersionResponse], [IncorrectHashResponse] and
// [ShutdownResponse].
type BuildResponse interface {
	Type() ResponseType
	isBuildResponse()
}

// A compilation ran to completion. A non-zero exit code is still a
// completed interaction.
type CompletedResponse struct {
	ExitCode   int32  // Exit code of the compiler.
	UTF8Output bool   // Whether the client should print Output as UTF-8.
	Output     string // Captured compiler output.
}

// The server declined the request.
type RejectedResponse struct {
	Reason string // Human-readable reason.
}

// Analyzers loaded in the server differ from those on disk.
type AnalyzerInconsistencyResponse struct {
	ErrorMessages []string // One message per mismatched analyzer.
}

// The client speaks a different protocol version.
type MismatchedVersionResponse struct{}

// The client expects a different compiler build.
type IncorrectHashResponse struct{}

// The server accepted a shutdown request.
type ShutdownResponse struct {
	ServerProcessID uint32 // Process id of the server that will exit.
}

func (*CompletedResponse) Type() ResponseType             { return ResponseCompleted }
func (*RejectedResponse) Type() ResponseType              { return ResponseRejected }
func (*AnalyzerInconsistencyResponse) Type() ResponseType { return ResponseAnalyzerInconsistency }
func (*MismatchedVersionResponse) Type() ResponseType     { return ResponseMismatchedVersion }
func (*IncorrectHashResponse) Type() ResponseType         { return ResponseIncorrectHash }
func (*ShutdownResponse) Type() ResponseType              { return ResponseShutdown }

func (*CompletedResponse) isBuildResponse()             {}
func (*RejectedResponse) isBuildResponse()              {}
func (*AnalyzerInconsistencyResponse) isBuildResponse() {}
func (*MismatchedVersionResponse) isBuildResponse()     {}
func (*IncorrectHashResponse) isBuildResponse()         {}
func (*ShutdownResponse) isBuildResponse()              {}
