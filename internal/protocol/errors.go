package protocol

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	ErrProtocol       = errors.New("protocol error")
	ErrMalformedFrame = fmt.Errorf("%w: malformed frame", errdefs.ErrInvalidArgument)
	ErrFrameTooLarge  = fmt.Errorf("%w: frame exceeds size limit", errdefs.ErrInvalidArgument)
)
