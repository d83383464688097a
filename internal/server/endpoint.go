package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Time allowed for the metrics endpoint to finish in-flight scrapes.
const endpointShutdownTimeout = 2 * time.Second

// HTTP endpoint serving the metrics of one registry.
type metricsEndpoint struct {
	srv  *http.Server // Serving HTTP server.
	addr string       // Bound address.
}

// Returns the router of the metrics endpoint.
func metricsRouter(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

// Binds addr and serves the metrics router in the background.
//
// Only loopback addresses are accepted.
func startMetricsEndpoint(addr string, reg *prometheus.Registry) (*metricsEndpoint, error) {
	if err := checkLoopback(addr); err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetrics, err)
	}

	e := &metricsEndpoint{
		srv: &http.Server{
			Handler:           metricsRouter(reg),
			ReadHeaderTimeout: 5 * time.Second,
		},
		addr: ln.Addr().String(),
	}

	go func() {
		if err := e.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics endpoint stopped", "error", err)
		}
	}()

	slog.Info("serving metrics", "address", e.addr)
	return e, nil
}

// Stops the endpoint, waiting briefly for in-flight scrapes.
func (e *metricsEndpoint) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), endpointShutdownTimeout)
	defer cancel()
	e.srv.Shutdown(ctx)
}

// Rejects addresses that are not on the loopback interface.
func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMetrics, err)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("%w: %s is not a loopback address", ErrMetrics, addr)
}
