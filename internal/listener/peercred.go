package listener

import (
	"fmt"

	"github.com/containerd/errdefs"
)

var errPeerCredUnsupported = fmt.Errorf("%w: peer credentials", errdefs.ErrNotImplemented)
