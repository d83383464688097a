package cli

import (
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/cruciblehq/compd/internal"
)

// Creates the process logger seeded from build-time linker flags.
//
// The returned logger is also a [slog.Handler]. It is reconfigured after
// flag parsing by [Execute].
func NewLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          internal.Name,
		Level:           log.Level(internal.LogLevel()),
		ReportTimestamp: internal.IsVerbose(),
		ReportCaller:    internal.IsVerbose(),
		Formatter:       log.TextFormatter,
	})
}

// Applies the logging flags to the global modes and the default logger.
func configureLogger(root *RootCmd) {
	if root.Debug {
		internal.SetDebug(true)
	}
	if root.Quiet {
		internal.SetQuiet(true)
	}
	if root.Verbose {
		internal.SetVerbose(true)
	}

	logger, ok := slog.Default().Handler().(*log.Logger)
	if !ok {
		return // Not installed by NewLogger, nothing to configure
	}

	logger.SetLevel(log.Level(internal.LogLevel()))
	logger.SetReportTimestamp(internal.IsVerbose())
	logger.SetReportCaller(internal.IsVerbose())
}
