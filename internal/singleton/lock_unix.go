//go:build unix

package singleton

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Takes an exclusive open-file-description lock on f without blocking.
//
// flock locks belong to the open file description, so a second descriptor
// for the same file in this process conflicts with the first, just as a
// descriptor in another process does.
func lock(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return ErrAlreadyRunning
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSingleton, err)
	}
	return nil
}

func unlock(f *os.File) {
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
