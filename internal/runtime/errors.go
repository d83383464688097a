package runtime

import "errors"

var (
	ErrRuntime   = errors.New("runtime error")
	ErrCancelled = errors.New("process cancelled")
)
