package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Time a cancelled process is given to exit after the interrupt.
const KillDelay = 5 * time.Second

// Sequence counter for generating unique exec process identifiers.
var execSeq uint64

// Returns a unique exec process identifier.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", atomic.AddUint64(&execSeq, 1))
}

// A process to run.
type Command struct {
	Path string   // Executable name or path. Names are looked up in PATH.
	Args []string // Arguments, excluding the executable.
	Dir  string   // Working directory. Empty uses the server's.
	Env  []string // "KEY=value" overrides on top of the server environment.
}

// Output of a process execution.
type ExecResult struct {
	ExitCode int    // Exit code of the process.
	Output   string // Interleaved standard output and standard error.
}

// Runs the command to completion.
//
// A non-zero exit code is not treated as an error; the caller decides. If
// ctx is cancelled before the process exits, the error matches
// [ErrCancelled] and the partial output is discarded.
func Exec(ctx context.Context, command Command) (*ExecResult, error) {
	id := nextExecID()

	cmd := exec.CommandContext(ctx, command.Path, command.Args...)
	cmd.Dir = command.Dir
	cmd.Env = mergeEnv(os.Environ(), command.Env)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = KillDelay

	var out lockedBuffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	slog.Debug("starting process", "id", id, "path", command.Path, "args", command.Args, "dir", command.Dir)

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
	default:
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	code := cmd.ProcessState.ExitCode()
	slog.Debug("process exited", "id", id, "code", code)

	return &ExecResult{ExitCode: code, Output: out.String()}, nil
}

// Merges override env vars on top of a base env slice.
func mergeEnv(base, overrides []string) []string {
	merged := make(map[string]string, len(base)+len(overrides))
	for _, entry := range base {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}
	for _, entry := range overrides {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}

	result := make([]string, 0, len(merged))
	for k, v := range merged {
		result = append(result, k+"="+v)
	}
	return result
}

// A buffer shared by stdout and stderr copiers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
