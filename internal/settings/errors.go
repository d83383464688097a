package settings

import "errors"

var ErrSettings = errors.New("settings error")
