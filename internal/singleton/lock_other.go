//go:build !unix

package singleton

import (
	"fmt"
	"os"
	"runtime"
)

func lock(f *os.File) error {
	return fmt.Errorf("%w: not supported on %s", ErrSingleton, runtime.GOOS)
}

func unlock(f *os.File) {}
