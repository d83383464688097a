package internal

import (
	"log/slog"
	"testing"
)

func TestLogLevel(t *testing.T) {
	prevDebug, prevQuiet := IsDebug(), IsQuiet()
	t.Cleanup(func() {
		SetDebug(prevDebug)
		SetQuiet(prevQuiet)
	})

	tests := []struct {
		debug, quiet bool
		want         slog.Level
	}{
		{false, false, slog.LevelInfo},
		{false, true, slog.LevelWarn},
		{true, false, slog.LevelDebug},
		{true, true, slog.LevelDebug},
	}

	for _, tt := range tests {
		SetDebug(tt.debug)
		SetQuiet(tt.quiet)
		if got := LogLevel(); got != tt.want {
			t.Fatalf("LogLevel(debug=%v, quiet=%v) = %v, want %v", tt.debug, tt.quiet, got, tt.want)
		}
	}
}
