package server

import "errors"

var (
	ErrServer        = errors.New("server error")
	ErrInvalidConfig = errors.New("invalid server configuration")
	ErrMetrics       = errors.New("metrics endpoint failed")
)
