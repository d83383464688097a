package cli

import (
	"context"
	"fmt"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/cruciblehq/compd/internal"
)

// Process exit codes.
const (
	ExitSucceeded = 0
	ExitFailed    = 1
)

// Represents the root command for the compd server.
type RootCmd struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Enable verbose output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Config  string     `help:"Path to the settings file." placeholder:"PATH" type:"path"`
	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Run the build server (default)."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
//
// Any argument the command line does not define is an error matching
// [ErrUsage], and nothing is started. A panic raised while starting or
// serving is returned as an error matching [ErrPanic].
func Execute(args []string) (err error) {
	defer recoverPanic(&err)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var root RootCmd
	kongCtx, err := parse(ctx, &root, args)
	if err != nil {
		return err
	}

	configureLogger(&root)

	return kongCtx.Run(&root)
}

// Parses args into root.
func parse(ctx context.Context, root *RootCmd, args []string) (*kong.Context, error) {
	parser, err := kong.New(root,
		kong.Name(internal.Name),
		kong.Description("The compd build server.\n\nServes compile requests from short-lived clients over a per-user Unix socket."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	kongCtx, err := parser.Parse(normalizeArgs(args))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return kongCtx, nil
}

// Replaces *err with the recovered panic, if any. Must be deferred directly.
func recoverPanic(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
	}
}
