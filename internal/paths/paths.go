package paths

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/opencontainers/go-digest"
)

const (

	// Name used for directory and file naming.
	daemonName = "compd"

	// Number of hex digits of the digest kept in a derived pipe name.
	pipeNameDigits = 24

	// Longest pipe name accepted from the command line. Keeps the socket
	// path within the 104-byte limit of sun_path on macOS.
	maxPipeNameLength = 48

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0700

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0600
)

var ErrInvalidPipeName = errors.New("invalid pipe name")

// Path to the directory for runtime files (sockets, locks).
//
//	Linux:   $XDG_RUNTIME_DIR/compd or /run/user/<uid>/compd
//	macOS:   ~/Library/Caches/compd/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, daemonName)
	}
	return filepath.Join(xdg.CacheHome, daemonName, "run")
}

// Default path to the settings file.
//
//	Linux:   $XDG_CONFIG_HOME/compd/settings.toml
//	macOS:   ~/Library/Application Support/compd/settings.toml
func SettingsFile() string {
	return filepath.Join(xdg.ConfigHome, daemonName, "settings.toml")
}

// Path to the Unix domain socket for the given pipe name.
func Socket(pipeName string) string {
	return filepath.Join(Runtime(), pipeName+".sock")
}

// Path to the singleton lock file for the given pipe name.
func LockFile(pipeName string) string {
	return filepath.Join(Runtime(), pipeName+".lock")
}

// Derives the pipe name for a server installed in dir.
//
// The name is a digest of the current user and the cleaned directory, so
// the same user launching the same installation always reaches the same
// server, while different users and installations never collide.
func PipeName(dir string) string {
	d := digest.FromString(currentUser() + "\x00" + filepath.Clean(dir))
	return d.Encoded()[:pipeNameDigits]
}

// Returns the directory holding the running executable, with symlinks
// resolved.
func InstallDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// Derives the pipe name from the installation directory.
func DefaultPipeName() (string, error) {
	dir, err := InstallDir()
	if err != nil {
		return "", err
	}
	return PipeName(dir), nil
}

// Checks that a user-supplied pipe name can be used as a file name.
func ValidatePipeName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidPipeName)
	case len(name) > maxPipeNameLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidPipeName, maxPipeNameLength)
	case strings.ContainsAny(name, `/\`+"\x00"), name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidPipeName, name)
	}
	return nil
}

// Returns the login name of the current user, or the uid if the user
// database cannot be read.
func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return fmt.Sprintf("uid-%d", os.Getuid())
}
