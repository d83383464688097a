package internal

import (
	"strings"
	"testing"
)

func TestVersionStringLocal(t *testing.T) {
	if !IsLocal() {
		t.Skip("built with pipeline linker flags")
	}
	if got := VersionString(); got != localBuild {
		t.Fatalf("VersionString = %q, want %q", got, localBuild)
	}
}

func TestCompilerHashDerived(t *testing.T) {
	h := CompilerHash()
	if !strings.HasPrefix(h, "sha256:") {
		t.Fatalf("CompilerHash = %q, want sha256 digest", h)
	}
	if CompilerHash() != h {
		t.Fatal("CompilerHash is not deterministic")
	}
}

func TestCompilerHashLinkerOverride(t *testing.T) {
	prev := compilerHash
	t.Cleanup(func() { compilerHash = prev })

	compilerHash = " pinned "
	if got := CompilerHash(); got != "pinned" {
		t.Fatalf("CompilerHash = %q, want pinned", got)
	}
}

func TestVersionStripsPrefix(t *testing.T) {
	prev := version
	t.Cleanup(func() { version = prev })

	version = "V1.2.3"
	if got := Version(); got != "1.2.3" {
		t.Fatalf("Version = %q, want 1.2.3", got)
	}
}
