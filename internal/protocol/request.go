package protocol

import (
	"strconv"
	"sync/atomic"
)

// Version of the build protocol implemented by this package. Clients
// speaking a different version are answered with [MismatchedVersionResponse].
const ProtocolVersion uint32 = 5

// Compiler language requested by the client.
type Language uint8

const (
	CSharp      Language = 0x01
	VisualBasic Language = 0x02
)

// Returns the string representation of the language.
func (l Language) String() string {
	switch l {
	case CSharp:
		return "csharp"
	case VisualBasic:
		return "visualbasic"
	default:
		return "unknown"
	}
}

// Returns true if the language is one the protocol defines.
func (l Language) Valid() bool {
	return l == CSharp || l == VisualBasic
}

// Identifies the meaning of an [Argument].
type ArgumentID uint8

const (
	CurrentDirectory    ArgumentID = 0x01
	TempDirectory       ArgumentID = 0x02
	LibEnvVariable      ArgumentID = 0x03
	CommandLineArgument ArgumentID = 0x04
	KeepAlive           ArgumentID = 0x05
	Shutdown            ArgumentID = 0x06
)

// Returns the string representation of the argument id.
func (id ArgumentID) String() string {
	switch id {
	case CurrentDirectory:
		return "CurrentDirectory"
	case TempDirectory:
		return "TempDirectory"
	case LibEnvVariable:
		return "LibEnvVariable"
	case CommandLineArgument:
		return "CommandLineArgument"
	case KeepAlive:
		return "KeepAlive"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// A single request argument.
type Argument struct {
	ID    ArgumentID // Meaning of the value.
	Index uint32     // Position of a command-line argument. Zero for other ids.
	Value string     // Argument payload.
}

// A request sent from a client to the server.
type BuildRequest struct {
	ProtocolVersion uint32     // Protocol version the client speaks.
	CompilerHash    string     // Build identity of the compiler the client expects.
	RequestID       uint32     // Client-chosen id, echoed only in logs.
	Language        Language   // Language to compile.
	Arguments       []Argument // Request arguments in wire order.
}

// Returns true if the request is a shutdown control message.
//
// A shutdown request carries exactly one argument whose id is [Shutdown].
func (r *BuildRequest) IsShutdown() bool {
	return len(r.Arguments) == 1 && r.Arguments[0].ID == Shutdown
}

// Returns the keep-alive value of the first [KeepAlive] argument.
//
// The second return value is false when the request carries no keep-alive
// argument. Values that are not a non-negative integer number of seconds
// yield an error.
func (r *BuildRequest) KeepAlive() (int, bool, error) {
	for _, arg := range r.Arguments {
		if arg.ID != KeepAlive {
			continue
		}
		seconds, err := strconv.Atoi(arg.Value)
		if err != nil {
			return 0, true, err
		}
		if seconds < 0 {
			return 0, true, strconv.ErrRange
		}
		return seconds, true, nil
	}
	return 0, false, nil
}

// Inputs of a compilation, derived from a [BuildRequest].
type RunRequest struct {
	Language         Language // Language to compile.
	WorkingDirectory string   // Client working directory. Empty when absent.
	TempDirectory    string   // Client temp directory. Empty when absent.
	LibDirectory     string   // Value of the client's LIB variable. Empty when absent.
	Arguments        []string // Compiler command line in original order.
}

// Derives the compilation inputs from the request.
//
// Command-line arguments are placed at their index. Gaps left by indices
// the client omitted are filled with empty strings up to the highest index
// seen. For the single-valued ids the last occurrence wins.
func (r *BuildRequest) RunRequest() RunRequest {
	run := RunRequest{Language: r.Language}

	size := 0
	for _, arg := range r.Arguments {
		if arg.ID == CommandLineArgument && int(arg.Index)+1 > size {
			size = int(arg.Index) + 1
		}
	}
	run.Arguments = make([]string, size)

	for _, arg := range r.Arguments {
		switch arg.ID {
		case CurrentDirectory:
			run.WorkingDirectory = arg.Value
		case TempDirectory:
			run.TempDirectory = arg.Value
		case LibEnvVariable:
			run.LibDirectory = arg.Value
		case CommandLineArgument:
			run.Arguments[arg.Index] = arg.Value
		}
	}

	return run
}

var requestSeq atomic.Uint32

// Returns a process-unique request id.
func nextRequestID() uint32 {
	return requestSeq.Add(1)
}

// Creates a compile request for the given inputs.
//
// The keepAlive argument is only included when it is not empty.
func NewCompileRequest(language Language, run RunRequest, compilerHash, keepAlive string) *BuildRequest {
	req := &BuildRequest{
		ProtocolVersion: ProtocolVersion,
		CompilerHash:    compilerHash,
		RequestID:       nextRequestID(),
		Language:        language,
	}

	if run.WorkingDirectory != "" {
		req.Arguments = append(req.Arguments, Argument{ID: CurrentDirectory, Value: run.WorkingDirectory})
	}
	if run.TempDirectory != "" {
		req.Arguments = append(req.Arguments, Argument{ID: TempDirectory, Value: run.TempDirectory})
	}
	if run.LibDirectory != "" {
		req.Arguments = append(req.Arguments, Argument{ID: LibEnvVariable, Value: run.LibDirectory})
	}
	if keepAlive != "" {
		req.Arguments = append(req.Arguments, Argument{ID: KeepAlive, Value: keepAlive})
	}
	for i, value := range run.Arguments {
		req.Arguments = append(req.Arguments, Argument{ID: CommandLineArgument, Index: uint32(i), Value: value})
	}

	return req
}

// Creates a shutdown control request.
func NewShutdownRequest(compilerHash string) *BuildRequest {
	return &BuildRequest{
		ProtocolVersion: ProtocolVersion,
		CompilerHash:    compilerHash,
		RequestID:       nextRequestID(),
		Language:        CSharp,
		Arguments:       []Argument{{ID: Shutdown}},
	}
}
