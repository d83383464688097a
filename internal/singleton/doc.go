// Package singleton guarantees that at most one server owns a pipe name.
//
// A [Guard] is an exclusive, non-blocking advisory lock on a file derived
// from the pipe name. The lock is held until [Guard.Release] is called or
// the process exits, at which point the operating system drops it, so a
// crashed server never leaves a stale lock behind.
//
// Example usage:
//
//	guard, err := singleton.Acquire(paths.LockFile(pipeName))
//	if errors.Is(err, singleton.ErrAlreadyRunning) {
//	    return nil // another server owns the pipe
//	}
//	if err != nil {
//	    return err
//	}
//	defer guard.Release()
package singleton
