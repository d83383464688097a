package cli

import "errors"

var (
	ErrUsage = errors.New("invalid command line")
	ErrPanic = errors.New("unexpected panic")
)
