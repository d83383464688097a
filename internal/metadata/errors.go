package metadata

import "errors"

var (
	ErrMetadata = errors.New("metadata error")
	ErrLoad     = errors.New("image load failed")
)
