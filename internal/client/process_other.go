//go:build !unix

package client

import (
	"fmt"

	"github.com/containerd/errdefs"
)

func processAlive(int) (bool, error) {
	return false, fmt.Errorf("%w: process liveness", errdefs.ErrNotImplemented)
}
