package cli

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/cruciblehq/compd/internal"
	"github.com/cruciblehq/compd/internal/build"
	"github.com/cruciblehq/compd/internal/client"
	"github.com/cruciblehq/compd/internal/metadata"
	"github.com/cruciblehq/compd/internal/paths"
	"github.com/cruciblehq/compd/internal/server"
	"github.com/cruciblehq/compd/internal/settings"
)

// Longest time 'compd -shutdown' waits for the server to exit.
const shutdownWait = 5 * time.Minute

// Represents the 'compd serve' command.
type ServeCmd struct {
	PipeName string `name:"pipename" help:"Override the pipe name derived from the installation directory." placeholder:"NAME"`
	Shutdown bool   `help:"Ask the running server to shut down and wait for it to exit."`
}

// Executes the serve command.
//
// Runs the build server for the pipe until it completes, or with
// --shutdown stops the server that owns the pipe.
func (c *ServeCmd) Run(ctx context.Context, root *RootCmd) error {
	pipe, err := c.pipeName()
	if err != nil {
		return err
	}

	if c.Shutdown {
		return shutdown(ctx, pipe)
	}

	configPath := root.Config
	if configPath == "" {
		configPath = paths.SettingsFile()
	}

	s, err := settings.Load(configPath)
	if err != nil {
		return err
	}

	hostDir, err := paths.InstallDir()
	if err != nil {
		return err
	}

	cache := metadata.NewCache()
	defer cache.Close()

	compiler, err := build.New(build.Options{
		Commands: s.Compilers,
		Cache:    cache,
		Loader:   metadata.NewLoader(hostDir),
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := server.New(server.Config{
		SocketPath:     paths.Socket(pipe),
		LockPath:       paths.LockFile(pipe),
		KeepAlive:      s.KeepAlive,
		GCInterval:     s.GCInterval,
		Compiler:       compiler,
		CompilerHash:   internal.CompilerHash(),
		Registry:       reg,
		Cache:          cache,
		MetricsAddress: s.MetricsAddress,
	})
	if err != nil {
		return err
	}

	slog.Debug("serving pipe", "pipe", pipe, "settings", configPath)

	return srv.Run(ctx)
}

// Returns the pipe name from the command line or the installation
// directory.
func (c *ServeCmd) pipeName() (string, error) {
	if c.PipeName != "" {
		if err := paths.ValidatePipeName(c.PipeName); err != nil {
			return "", err
		}
		return c.PipeName, nil
	}
	return paths.DefaultPipeName()
}

// Stops the server that owns pipe and waits for its process to exit.
//
// Succeeds without doing anything if no server is running.
func shutdown(ctx context.Context, pipe string) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownWait)
	defer cancel()

	pid, err := client.New(paths.Socket(pipe)).Shutdown(ctx, internal.CompilerHash())
	if errors.Is(err, client.ErrNotRunning) {
		slog.Info("no server is running", "pipe", pipe)
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("waiting for server to exit", "pid", pid)
	return client.WaitForExit(ctx, pid)
}
