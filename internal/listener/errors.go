package listener

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	ErrListener       = errors.New("listener error")
	ErrConnection     = errors.New("connection error")
	ErrListenerClosed = fmt.Errorf("%w: listener closed", errdefs.ErrUnavailable)
	ErrPeerIdentity   = fmt.Errorf("%w: peer is not the server's user", errdefs.ErrPermissionDenied)
)
