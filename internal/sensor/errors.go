package sensor

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a configured device is not present.
var ErrNotFound = errors.New("sensor device not found")

// transientError marks a failure that is expected to clear by itself
// (checksum mismatch, bus timeout, busy device).
type transientError struct{ err error }

func (e transientError) Error() string { return "transient: " + e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// Transient wraps err so IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err: err}
}

// Transientf is Transient(fmt.Errorf(format, a...)).
func Transientf(format string, a ...any) error {
	return transientError{err: fmt.Errorf(format, a...)}
}

// IsTransient reports whether err is a transient read failure. Anything else
// returned by a driver is treated as structural.
func IsTransient(err error) bool {
	var te transientError
	return errors.As(err, &te)
}
