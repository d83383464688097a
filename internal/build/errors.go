package build

import "errors"

var (
	ErrBuild          = errors.New("build failed")
	ErrCompilerConfig = errors.New("invalid compiler command")
)
