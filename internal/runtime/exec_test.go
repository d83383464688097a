package runtime

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

func TestMergeEnv(t *testing.T) {
	tests := []struct {
		name      string
		base      []string
		overrides []string
		want      []string
	}{
		{
			name:      "override existing key",
			base:      []string{"A=1", "B=2"},
			overrides: []string{"A=override"},
			want:      []string{"A=override", "B=2"},
		},
		{
			name:      "add new key",
			base:      []string{"A=1"},
			overrides: []string{"B=2"},
			want:      []string{"A=1", "B=2"},
		},
		{
			name:      "empty base",
			base:      nil,
			overrides: []string{"A=1"},
			want:      []string{"A=1"},
		},
		{
			name:      "empty overrides",
			base:      []string{"A=1"},
			overrides: nil,
			want:      []string{"A=1"},
		},
		{
			name:      "both empty",
			base:      nil,
			overrides: nil,
			want:      []string{},
		},
		{
			name:      "value with equals sign",
			base:      []string{"CMD=foo=bar"},
			overrides: nil,
			want:      []string{"CMD=foo=bar"},
		},
		{
			name:      "malformed entries skipped",
			base:      []string{"NOEQUALS", "A=1"},
			overrides: []string{"ALSO_BAD", "B=2"},
			want:      []string{"A=1", "B=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeEnv(tt.base, tt.overrides)
			sort.Strings(got)
			sort.Strings(tt.want)

			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d\ngot:  %v\nwant: %v", len(got), len(tt.want), got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNextExecID(t *testing.T) {
	a := nextExecID()
	b := nextExecID()
	if a == b {
		t.Fatalf("nextExecID returned duplicate: %q", a)
	}
	if a == "" || b == "" {
		t.Fatal("nextExecID returned empty string")
	}
}

func TestExecCapturesOutputAndExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	result, err := Exec(context.Background(), Command{
		Path: "sh",
		Args: []string{"-c", `echo "out $GREETING"; pwd; echo err 1>&2; exit 3`},
		Dir:  dir,
		Env:  []string{"GREETING=hello"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", result.ExitCode)
	}
	for _, want := range []string{"out hello", filepath.Base(dir), "err"} {
		if !strings.Contains(result.Output, want) {
			t.Fatalf("Output = %q, missing %q", result.Output, want)
		}
	}
}

func TestExecMissingExecutable(t *testing.T) {
	_, err := Exec(context.Background(), Command{Path: "compd-definitely-not-installed"})
	if !errors.Is(err, ErrRuntime) {
		t.Fatalf("err = %v, want ErrRuntime", err)
	}
}

func TestExecCancelled(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Exec(ctx, Command{Path: "sleep", Args: []string{"10"}})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if elapsed := time.Since(start); elapsed > KillDelay+time.Second {
		t.Fatalf("Exec returned after %v", elapsed)
	}
}
