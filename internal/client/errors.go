package client

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	ErrClient             = errors.New("client error")
	ErrNotRunning         = fmt.Errorf("%w: no server is listening", errdefs.ErrUnavailable)
	ErrUnexpectedResponse = errors.New("unexpected response")
)
