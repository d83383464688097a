package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (

	// Idle time after which the server shuts down when nothing else is set.
	DefaultKeepAlive = 10 * time.Minute

	// Default period of the idle GC hint.
	DefaultGCInterval = 30 * time.Second

	// Environment variable overriding keep_alive.
	KeepAliveEnv = "COMPD_KEEPALIVE"
)

// Resolved daemon settings.
type Settings struct {
	KeepAlive      time.Duration     // Idle time before shutdown. Zero serves a single request.
	GCInterval     time.Duration     // Period of the idle GC hint.
	MetricsAddress string            // Loopback address for /metrics. Empty disables it.
	Compilers      map[string]string // Compiler command line by language name.
}

// On-disk layout of the settings file.
type file struct {
	KeepAlive      any               `toml:"keep_alive"`
	GCInterval     int               `toml:"gc_interval"`
	MetricsAddress string            `toml:"metrics_address"`
	Compilers      map[string]string `toml:"compilers"`
}

// Returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{
		KeepAlive:  DefaultKeepAlive,
		GCInterval: DefaultGCInterval,
		Compilers:  map[string]string{},
	}
}

// Loads settings from path, then applies environment overrides.
//
// A missing file yields the defaults. A file that is not valid TOML is an
// error.
func Load(path string) (*Settings, error) {
	s := Default()

	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrSettings, err)
		}
		slog.Debug("settings file not found, using defaults", "path", path)
	} else {
		s.apply(&f)
	}

	if v, ok := os.LookupEnv(KeepAliveEnv); ok {
		s.KeepAlive = parseKeepAlive(v)
	}

	return s, nil
}

// Copies the fields present in f over the defaults.
func (s *Settings) apply(f *file) {
	if f.KeepAlive != nil {
		s.KeepAlive = parseKeepAlive(f.KeepAlive)
	}
	if f.GCInterval > 0 {
		s.GCInterval = time.Duration(f.GCInterval) * time.Second
	}
	s.MetricsAddress = strings.TrimSpace(f.MetricsAddress)
	for lang, cmd := range f.Compilers {
		s.Compilers[strings.ToLower(lang)] = cmd
	}
}

// Converts a keep-alive value in seconds to a duration. Values that are
// not a non-negative integer yield [DefaultKeepAlive].
func parseKeepAlive(v any) time.Duration {
	var seconds int64
	switch v := v.(type) {
	case int64:
		seconds = v
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			slog.Warn("ignoring unparsable keep-alive", "value", v)
			return DefaultKeepAlive
		}
		seconds = n
	default:
		slog.Warn("ignoring unparsable keep-alive", "value", v)
		return DefaultKeepAlive
	}

	if seconds < 0 {
		slog.Warn("ignoring negative keep-alive", "value", seconds)
		return DefaultKeepAlive
	}
	return time.Duration(seconds) * time.Second
}
