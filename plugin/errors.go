package plugin

import (
	"errors"
	"fmt"

	"github.com/maxpert/geyserbridge/publisher"
)

// ErrConfig is matched by every ConfigError
var ErrConfig = errors.New("invalid configuration")

// ConfigError prevents activation: malformed configuration or an
// undecodable target program id
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error in %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// ConnectionError means the bus was unreachable at activation
type ConnectionError = publisher.ConnectionError

// ErrNotActivated is returned by every operation on a Plugin that did not
// come from Activate, or that was closed
var ErrNotActivated = &ConfigError{Err: errors.New("plugin is not activated")}
