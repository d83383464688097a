package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/cruciblehq/compd/internal"
	"github.com/cruciblehq/compd/internal/cli"
	"github.com/cruciblehq/compd/internal/singleton"
)

// The entry point for the compd server.
func main() {
	os.Exit(run(os.Args[1:]))
}

// Initializes logging, displays startup information, and executes the root
// command, returning the process exit code.
//
// Losing the race for the pipe to another server yields the failure code
// without logging an error; so does any other failure, after logging it.
// A panic that escapes is logged and also yields the failure code.
func run(args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("compd panicked", "panic", r)
			code = cli.ExitFailed
		}
	}()

	slog.SetDefault(slog.New(cli.NewLogger()))

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("compd is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", args,
	)

	if err := cli.Execute(args); err != nil {
		if errors.Is(err, singleton.ErrAlreadyRunning) {
			slog.Info("another server already owns this pipe")
		} else {
			slog.Error(err.Error())
		}
		return cli.ExitFailed
	}

	return cli.ExitSucceeded
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
