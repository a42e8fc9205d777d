package app

import (
	"errors"

	"beltsensor/internal/config"
	"beltsensor/internal/service/camera"
)

// ErrBrokerUnreachable is returned when the first broker connection fails.
var ErrBrokerUnreachable = errors.New("broker unreachable")

// Process exit statuses.
const (
	ExitOK       = 0
	ExitRuntime  = 1
	ExitConfig   = 2
	ExitNoDevice = 3
	ExitBroker   = 4
)

// ExitCode maps a Run or startup error to the process exit status.
func ExitCode(err error) int {
	var validation *config.ValidationError

	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &validation):
		return ExitConfig
	case errors.Is(err, camera.ErrNoDeviceFound):
		return ExitNoDevice
	case errors.Is(err, ErrBrokerUnreachable):
		return ExitBroker
	default:
		return ExitRuntime
	}
}
