package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mvdan.cc/sh/v3/shell"

	"github.com/cruciblehq/compd/internal/metadata"
	"github.com/cruciblehq/compd/internal/protocol"
	"github.com/cruciblehq/compd/internal/runtime"
)

// Configures a [Compiler].
type Options struct {
	Commands map[string]string // Compiler command line per language name ("csharp", "visualbasic").
	Cache    *metadata.Cache   // Process-wide metadata cache.
	Loader   *metadata.Loader  // Process-wide image loader.
}

// Runs compilations for the server.
type Compiler struct {
	commands map[protocol.Language][]string // Tokenised command per language.
	cache    *metadata.Cache                // Reference metadata cache.
	loader   *metadata.Loader               // Resolves references by file name.
	checker  *metadata.Checker              // Analyzer consistency check.
}

// Creates a new compiler.
//
// Each configured command is split into words with shell quoting rules. An
// unknown language name or a command that cannot be split is an error. A
// language without a command is allowed; its requests complete with exit
// code 1.
func New(opts Options) (*Compiler, error) {
	if opts.Cache == nil || opts.Loader == nil {
		return nil, fmt.Errorf("%w: cache and loader are required", ErrCompilerConfig)
	}

	c := &Compiler{
		commands: make(map[protocol.Language][]string),
		cache:    opts.Cache,
		loader:   opts.Loader,
		checker:  metadata.NewChecker(opts.Loader, opts.Cache),
	}

	for name, command := range opts.Commands {
		lang, ok := languageByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown language %q", ErrCompilerConfig, name)
		}
		if command == "" {
			continue
		}
		words, err := shell.Fields(command, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCompilerConfig, name, err)
		}
		if len(words) > 0 {
			c.commands[lang] = words
		}
	}

	return c, nil
}

// Runs one compilation.
//
// Never panics. Invalid requests produce a [protocol.RejectedResponse],
// inconsistent analyzers an [protocol.AnalyzerInconsistencyResponse], and
// everything else a [protocol.CompletedResponse]. When ctx is cancelled the
// compiler process is interrupted and a rejection is returned, which the
// caller is expected to discard.
func (c *Compiler) RunCompilation(ctx context.Context, run protocol.RunRequest) (resp protocol.BuildResponse) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("compilation panicked", "panic", r)
			resp = &protocol.RejectedResponse{Reason: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	if run.WorkingDirectory == "" {
		return &protocol.RejectedResponse{Reason: "missing working directory"}
	}
	if run.TempDirectory == "" {
		return &protocol.RejectedResponse{Reason: "missing temp directory"}
	}
	if !run.Language.Valid() {
		return &protocol.RejectedResponse{Reason: fmt.Sprintf("unsupported language %d", run.Language)}
	}

	inv := newInvocation(run)

	if ok, messages := c.checker.Check(inv.workdir, inv.analyzers); !ok {
		return &protocol.AnalyzerInconsistencyResponse{ErrorMessages: messages}
	}

	c.warmReferences(inv)

	words, ok := c.commands[run.Language]
	if !ok {
		return &protocol.CompletedResponse{
			ExitCode:   1,
			UTF8Output: inv.utf8Output,
			Output:     fmt.Sprintf("no compiler configured for %s\n", run.Language),
		}
	}

	args := make([]string, 0, len(words)-1+len(run.Arguments))
	args = append(args, words[1:]...)
	args = append(args, run.Arguments...)

	result, err := runtime.Exec(ctx, runtime.Command{
		Path: words[0],
		Args: args,
		Dir:  inv.workdir,
		Env:  inv.environ(),
	})
	if errors.Is(err, runtime.ErrCancelled) {
		return &protocol.RejectedResponse{Reason: "compilation cancelled"}
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrBuild, err)
		slog.Warn("failed to run compiler", "language", run.Language, "error", err)
		return &protocol.CompletedResponse{
			ExitCode:   1,
			UTF8Output: inv.utf8Output,
			Output:     err.Error() + "\n",
		}
	}

	return &protocol.CompletedResponse{
		ExitCode:   int32(result.ExitCode),
		UTF8Output: inv.utf8Output,
		Output:     result.Output,
	}
}

// Reads reference metadata through the cache so later builds hit it.
//
// Failures are logged and ignored; the compiler reports missing references
// itself.
func (c *Compiler) warmReferences(inv *invocation) {
	for _, ref := range inv.references {
		path, ok := c.resolveReference(inv.workdir, ref)
		if !ok {
			slog.Debug("unresolved reference", "reference", ref)
			continue
		}
		if _, err := c.cache.GetMetadata(path, metadata.Properties{Kind: metadata.AssemblyKind}); err != nil {
			slog.Debug("failed to read reference metadata", "path", path, "error", err)
		}
	}
	for _, mod := range inv.modules {
		path := mod
		if !filepath.IsAbs(path) {
			path = filepath.Join(inv.workdir, path)
		}
		if _, err := c.cache.GetMetadata(path, metadata.Properties{Kind: metadata.ModuleKind}); err != nil {
			slog.Debug("failed to read module metadata", "path", path, "error", err)
		}
	}
}

// Resolves a reference against the working directory, then the loader.
func (c *Compiler) resolveReference(workdir, ref string) (string, bool) {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(workdir, path)
	}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path, true
	}
	return c.loader.Resolve(filepath.Base(ref))
}

// Maps a configuration language name to its protocol value.
func languageByName(name string) (protocol.Language, bool) {
	switch name {
	case "csharp":
		return protocol.CSharp, true
	case "visualbasic":
		return protocol.VisualBasic, true
	}
	return 0, false
}
