package singleton

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	ErrSingleton      = errors.New("singleton lock error")
	ErrAlreadyRunning = fmt.Errorf("%w: another server owns this pipe", errdefs.ErrAlreadyExists)
)
