package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cruciblehq/compd/internal/metadata"
	"github.com/cruciblehq/compd/internal/protocol"
	"github.com/cruciblehq/compd/internal/singleton"
)

// Returns a directory short enough to hold Unix sockets on every platform.
func shortDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "compd")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no compiler", Config{LockPath: "l", SocketPath: "s"}},
		{"no lock path", Config{Compiler: okCompiler(), SocketPath: "s"}},
		{"no socket or host", Config{Compiler: okCompiler(), LockPath: "l"}},
		{"metrics without registry", Config{Compiler: okCompiler(), LockPath: "l", SocketPath: "s", MetricsAddress: "127.0.0.1:0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("New error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNewDefaultsGCInterval(t *testing.T) {
	s, err := New(Config{Compiler: okCompiler(), LockPath: "l", Host: newFakeHost()})
	if err != nil {
		t.Fatal(err)
	}
	if s.cfg.GCInterval != DefaultGCInterval {
		t.Fatalf("GCInterval = %s, want %s", s.cfg.GCInterval, DefaultGCInterval)
	}
}

func TestServerSingleton(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "pipe.lock")

	first := newFakeHost()
	s1, err := New(Config{Compiler: okCompiler(), LockPath: lock, Host: first, KeepAlive: -1})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s1.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for first.begun.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}

	second := newFakeHost()
	s2, err := New(Config{Compiler: okCompiler(), LockPath: lock, Host: second, KeepAlive: -1})
	if err != nil {
		t.Fatal(err)
	}

	if err := s2.Run(context.Background()); !errors.Is(err, singleton.ErrAlreadyRunning) {
		t.Fatalf("second Run = %v, want ErrAlreadyRunning", err)
	}
	if n := second.begun.Load(); n != 0 {
		t.Fatalf("second server called BeginListening %d times", n)
	}

	cancel()
	if err := waitRun(t, errc); err != nil {
		t.Fatal(err)
	}

	// The lock is free again once the first server has returned.
	third := newFakeHost()
	s3, err := New(Config{Compiler: okCompiler(), LockPath: lock, Host: third, KeepAlive: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if err := s3.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestServerOverUnixSocket(t *testing.T) {
	dir := shortDir(t)
	socket := filepath.Join(dir, "p.sock")

	s, err := New(Config{
		SocketPath:   socket,
		LockPath:     filepath.Join(dir, "p.lock"),
		KeepAlive:    -1,
		Compiler:     okCompiler(),
		CompilerHash: testHash,
	})
	if err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() { errc <- s.Run(context.Background()) }()

	var conn net.Conn
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err = net.Dial("unix", socket)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer conn.Close()

	if _, ok := roundTrip(t, conn, compileRequest("")).(*protocol.CompletedResponse); !ok {
		t.Fatal("response is not a completion")
	}

	stop, err := net.Dial("unix", socket)
	if err != nil {
		t.Fatal(err)
	}
	defer stop.Close()

	if _, ok := roundTrip(t, stop, protocol.NewShutdownRequest(testHash)).(*protocol.ShutdownResponse); !ok {
		t.Fatal("response is not a shutdown response")
	}

	if err := waitRun(t, errc); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(socket); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("socket left behind: %v", err)
	}
}

func TestMetricsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.setState(ShuttingDown)

	router := metricsRouter(reg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "compd_server_state 1") {
		t.Fatalf("metrics body missing server state:\n%s", body)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("GET /healthz = %d %q, want 200 ok", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	e, err := startMetricsEndpoint("127.0.0.1:0", reg)
	if err != nil {
		t.Fatal(err)
	}
	defer e.stop()

	resp, err := http.Get("http://" + e.addr + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "compd_inflight_connections") {
		t.Fatalf("metrics body missing inflight gauge:\n%s", body)
	}
}

func TestCheckLoopback(t *testing.T) {
	tests := []struct {
		addr string
		ok   bool
	}{
		{"127.0.0.1:9100", true},
		{"[::1]:9100", true},
		{"localhost:9100", true},
		{"0.0.0.0:9100", false},
		{"10.0.0.1:9100", false},
		{"example.com:9100", false},
		{"9100", false},
	}

	for _, tt := range tests {
		err := checkLoopback(tt.addr)
		if (err == nil) != tt.ok {
			t.Fatalf("checkLoopback(%q) = %v, want ok=%v", tt.addr, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrMetrics) {
			t.Fatalf("checkLoopback(%q) error = %v, want ErrMetrics", tt.addr, err)
		}
	}
}

func TestRegisterCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cache := metadata.NewCache()
	defer cache.Close()

	RegisterCacheMetrics(reg, cache)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"compd_metadata_cache_hits_total",
		"compd_metadata_cache_misses_total",
		"compd_metadata_cache_evictions_total",
		"compd_metadata_cache_entries",
	} {
		if !names[want] {
			t.Fatalf("metric %s not registered", want)
		}
	}
}
