package state

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every ConfigurationError
	ErrConfiguration = errors.New("invalid status machine configuration")

	// ErrUnknownStatus matches every UnknownStatusError
	ErrUnknownStatus = errors.New("unknown status")

	// ErrUnreachable is returned by the Unreachable handler
	ErrUnreachable = errors.New("status machine has reached end state")
)

// ConfigurationError reports invalid construction arguments
type ConfigurationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("[CONFIGURATION] %s: %s", e.Field, e.Message)
}

// Is lets errors.Is match ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnknownStatusError reports a transition to a status with no handler
type UnknownStatusError struct {
	Status Status
}

// Error implements the error interface
func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("[UNKNOWN_STATUS] unknown status: %s", e.Status)
}

// Is lets errors.Is match ErrUnknownStatus
func (e *UnknownStatusError) Is(target error) bool {
	return target == ErrUnknownStatus
}

// IsConfigurationError checks if the error is a configuration error
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsUnknownStatus checks if the error is an unknown status error
func IsUnknownStatus(err error) bool {
	return errors.Is(err, ErrUnknownStatus)
}
