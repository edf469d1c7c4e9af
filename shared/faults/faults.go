// Package faults classifies saga processing errors so consumers can decide
// between rejecting a message to the dead letter exchange, acknowledging it,
// or requeueing it for another attempt.
package faults

import (
	"errors"
	"fmt"
)

// ValidationError marks a message that can never be processed: malformed
// body, missing required fields, unknown references. Consumers reject these
// without requeue so they land on the dead letter queue immediately.
type ValidationError struct {
	err error
}

func Validation(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{err: err}
}

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{err: fmt.Errorf(format, args...)}
}

func (e *ValidationError) Error() string { return e.err.Error() }
func (e *ValidationError) Unwrap() error { return e.err }

// ConflictError marks a message that is well formed but contradicts current
// state, such as a status transition the state machine forbids. Redelivery
// cannot fix it, so consumers log and acknowledge.
type ConflictError struct {
	err error
}

func Conflict(err error) error {
	if err == nil {
		return nil
	}
	return &ConflictError{err: err}
}

func Conflictf(format string, args ...interface{}) error {
	return &ConflictError{err: fmt.Errorf(format, args...)}
}

func (e *ConflictError) Error() string { return e.err.Error() }
func (e *ConflictError) Unwrap() error { return e.err }

// TransientError marks a failure that may succeed on retry, such as a lost
// database connection. Consumers requeue; queue TTLs bound the retries
// before the message dead letters.
type TransientError struct {
	err error
}

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{err: err}
}

func Transientf(format string, args ...interface{}) error {
	return &TransientError{err: fmt.Errorf(format, args...)}
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
