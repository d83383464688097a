package internal

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"
)

// Name of the daemon, used for logging, paths and the command line.
const Name = "compd"

const (
	undefined  = "(undefined)" // Placeholder for an unset build variable
	localBuild = "(local)"     // Version string of a non-pipeline build
	mainBranch = "main"        // Stage that is omitted from version strings
)

// Set via -ldflags "-X github.com/cruciblehq/compd/internal.<name>=<value>".
var (
	version      = "" // Version number (e.g., "1.2.3")
	stage        = "" // Git branch the pipeline built from
	gitCommit    = "" // Git commit hash
	compilerHash = "" // Build identity clients must present (e.g., "sha256:...")

	rawQuiet   = "false" // Whether to enable quiet mode
	rawDebug   = "false" // Whether to enable debug mode
	rawVerbose = "false" // Whether to enable verbose logging
)

// Local builds derive their identity from the executable itself.
var executableHash = sync.OnceValue(func() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	f, err := os.Open(exe)
	if err != nil {
		return ""
	}
	defer f.Close()

	d, err := digest.FromReader(f)
	if err != nil {
		return ""
	}
	return d.String()
})

func trimmed(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return undefined
	}
	return s
}

// Returns the version number without any "v" prefix.
func Version() string {
	v := trimmed(version)
	if v == undefined {
		return v
	}
	return strings.TrimPrefix(strings.ToLower(v), "v")
}

// Returns true unless the pipeline set version, stage and commit.
func IsLocal() bool {
	return trimmed(version) == undefined ||
		trimmed(stage) == undefined ||
		trimmed(gitCommit) == undefined
}

// Returns "<version>[+<stage>] <commit> [<arch>]", or "(local)".
func VersionString() string {
	if IsLocal() {
		return localBuild
	}

	suffix := ""
	if s := strings.ToLower(trimmed(stage)); s != mainBranch {
		suffix = "+" + s
	}
	return fmt.Sprintf("%s%s %s [%s]", Version(), suffix, trimmed(gitCommit), runtime.GOARCH)
}

// Returns the build identity hash clients must present.
//
// Pipeline builds pin the hash via linker flags. Otherwise a pipeline build
// hashes its version string, and a local build hashes its own executable so
// that only clients shipped with the very same binary are served. Two
// processes started from one file always agree.
func CompilerHash() string {
	if h := strings.TrimSpace(compilerHash); h != "" {
		return h
	}
	if IsLocal() {
		if h := executableHash(); h != "" {
			return h
		}
	}
	return digest.FromString(VersionString()).String()
}
