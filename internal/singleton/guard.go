package singleton

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Exclusive ownership of a pipe name.
type Guard struct {
	path string
	file *os.File
	once sync.Once
}

// Attempts to become the only owner of the lock at path.
//
// Returns [ErrAlreadyRunning] without waiting if another process, or another
// guard in this process, holds the lock.
func Acquire(path string) (*Guard, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSingleton, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSingleton, err)
	}

	if err := lock(f); err != nil {
		f.Close()
		return nil, err
	}

	// Informational only; the lock, not the content, decides ownership.
	f.Truncate(0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	return &Guard{path: path, file: f}, nil
}

// Returns the lock file path.
func (g *Guard) Path() string {
	return g.path
}

// Releases the lock. Safe to call more than once.
func (g *Guard) Release() error {
	var err error
	g.once.Do(func() {
		unlock(g.file)
		err = g.file.Close()
	})
	return err
}
