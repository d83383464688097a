package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cruciblehq/compd/internal/listener"
	"github.com/cruciblehq/compd/internal/metadata"
	"github.com/cruciblehq/compd/internal/singleton"
)

// Default period of the GC hint while idle.
const DefaultGCInterval = 30 * time.Second

// Holds server configuration.
type Config struct {
	SocketPath     string               // Unix socket path. Required unless Host is set.
	LockPath       string               // Singleton lock path. Required.
	KeepAlive      time.Duration        // Idle period before exiting. Zero serves one request; negative never times out.
	GCInterval     time.Duration        // Idle period between GC hints. Zero uses [DefaultGCInterval]; negative disables.
	Compiler       Compiler             // Runs compilations. Required.
	CompilerHash   string               // Build identity clients must present.
	Host           ConnectionHost       // Connection source. Nil listens on SocketPath.
	Registry       *prometheus.Registry // Metrics registry. Nil keeps metrics unregistered.
	Cache          *metadata.Cache      // Metadata cache to export metrics for. Optional.
	MetricsAddress string               // Loopback address for the metrics endpoint. Empty disables it.
}

// A build server bound to one pipe name.
type Server struct {
	cfg     Config   // Validated configuration.
	metrics *Metrics // Server metrics.
}

// Creates a new server instance.
//
// Metrics are registered with cfg.Registry here. Nothing is bound until
// [Server.Run] is called.
func New(cfg Config) (*Server, error) {
	if cfg.Compiler == nil {
		return nil, fmt.Errorf("%w: compiler is required", ErrInvalidConfig)
	}
	if cfg.LockPath == "" {
		return nil, fmt.Errorf("%w: lock path is required", ErrInvalidConfig)
	}
	if cfg.Host == nil && cfg.SocketPath == "" {
		return nil, fmt.Errorf("%w: socket path is required", ErrInvalidConfig)
	}
	if cfg.MetricsAddress != "" && cfg.Registry == nil {
		return nil, fmt.Errorf("%w: metrics address requires a registry", ErrInvalidConfig)
	}
	if cfg.GCInterval == 0 {
		cfg.GCInterval = DefaultGCInterval
	}

	var reg prometheus.Registerer
	if cfg.Registry != nil {
		reg = cfg.Registry
	}

	s := &Server{cfg: cfg, metrics: NewMetrics(reg)}
	if cfg.Registry != nil && cfg.Cache != nil {
		RegisterCacheMetrics(cfg.Registry, cfg.Cache)
	}

	return s, nil
}

// Runs the server until it completes.
//
// The singleton lock is taken before anything else. If another server
// holds it, the error matches [singleton.ErrAlreadyRunning] and nothing
// has been bound. The lock is held until Run returns.
func (s *Server) Run(ctx context.Context) error {
	guard, err := singleton.Acquire(s.cfg.LockPath)
	if err != nil {
		return err
	}
	defer guard.Release()
	slog.Debug("singleton lock acquired", "path", guard.Path())

	if s.cfg.MetricsAddress != "" {
		endpoint, err := startMetricsEndpoint(s.cfg.MetricsAddress, s.cfg.Registry)
		if err != nil {
			return err
		}
		defer endpoint.stop()
	}

	host := s.cfg.Host
	if host == nil {
		host = listener.New(listener.Config{Path: s.cfg.SocketPath})
	}

	h := &handler{
		compiler:     s.cfg.Compiler,
		compilerHash: s.cfg.CompilerHash,
		metrics:      s.metrics,
	}

	gcInterval := max(s.cfg.GCInterval, 0)
	d := newDispatcher(host, h, s.cfg.KeepAlive, gcInterval, s.metrics)

	slog.Info("server starting",
		"pid", os.Getpid(),
		"socket", s.cfg.SocketPath,
		"keepalive", s.cfg.KeepAlive,
	)

	return d.run(ctx)
}
