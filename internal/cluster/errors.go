package cluster

import (
	"errors"
	"fmt"
)

// ErrDeferred means another convergence run is active. The trigger must be
// redelivered later; it is not a processing failure.
var ErrDeferred = errors.New("convergence run already active, deferring trigger")

// IsDeferred reports whether err carries ErrDeferred.
func IsDeferred(err error) bool {
	return errors.Is(err, ErrDeferred)
}

// ConfigError marks a missing or invalid required setting or registry entry.
// It is fatal to the current invocation and no mutation is attempted after it.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Reason)
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// TransportError wraps a failed call to an external collaborator.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transport wraps err as a *TransportError for op. It returns nil for a nil err.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
