package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"
)

// An image loaded into the process.
type Image struct {
	Path      string        // Absolute path the image was loaded from.
	MVID      digest.Digest // Module version id at load time.
	HostOwned bool          // Whether the image ships with the server itself.
}

// Loads analyzer images for the compiler.
type AssemblyLoader interface {

	// Registers a directory searched when one image references another.
	AddDependencyLocation(path string)

	// Loads the image at path, returning the already-loaded image if the
	// path was loaded before.
	Load(path string) (*Image, error)
}

// Process-wide image registry.
//
// The first load of a path reads the file and pins the result; later loads
// of the same path return the pinned image even if the file has changed.
type Loader struct {
	hostDir   string
	mu        sync.Mutex
	images    map[string]*Image
	locations []string
}

// Creates a loader. Images under hostDir are reported as host-owned.
func NewLoader(hostDir string) *Loader {
	if abs, err := filepath.Abs(hostDir); err == nil {
		hostDir = abs
	}
	return &Loader{
		hostDir: hostDir,
		images:  make(map[string]*Image),
	}
}

// Registers the directory containing path as a dependency location.
func (l *Loader) AddDependencyLocation(path string) {
	dir := filepath.Dir(path)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !slices.Contains(l.locations, dir) {
		l.locations = append(l.locations, dir)
	}
}

// Returns the registered dependency locations in registration order.
func (l *Loader) DependencyLocations() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.locations)
}

// Finds a dependency by file name in the registered locations.
func (l *Loader) Resolve(name string) (string, bool) {
	for _, dir := range l.DependencyLocations() {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// Loads the image at path, pinning it on first load.
func (l *Loader) Load(path string) (*Image, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if img, ok := l.images[abs]; ok {
		return img, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	img := &Image{
		Path:      abs,
		MVID:      digest.FromBytes(data),
		HostOwned: l.owns(abs),
	}
	l.images[abs] = img
	return img, nil
}

// Returns true if path lies inside the host directory.
func (l *Loader) owns(path string) bool {
	if l.hostDir == "" {
		return false
	}
	rel, err := filepath.Rel(l.hostDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
