package worm

import (
	"errors"
	"fmt"
)

// ErrReadOnly is matched (via errors.Is) by every ViolationError.
var ErrReadOnly = errors.New("field is read-only")

// Op names the record operation that was rejected.
type Op string

const (
	// OpSet is a write through Record.Set.
	OpSet Op = "set"

	// OpDelete is a removal through Record.Delete.
	OpDelete Op = "delete"
)

// ViolationError reports an attempt to change a field that can no longer be
// changed. Only Strict records return it.
type ViolationError struct {
	// RecordID identifies the record that rejected the write.
	RecordID string

	// Key is the field name.
	Key string

	// Op is the rejected operation.
	Op Op

	// State is the field state at the time of the attempt.
	State State
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("cannot %s %s field %q (record=%s)", e.Op, e.State, e.Key, e.RecordID)
	}
	return fmt.Sprintf("cannot %s %s field %q", e.Op, e.State, e.Key)
}

// Unwrap returns ErrReadOnly so callers can use errors.Is.
func (e *ViolationError) Unwrap() error {
	return ErrReadOnly
}

// IsViolation returns true if err is or wraps a *ViolationError.
func IsViolation(err error) bool {
	var ve *ViolationError
	return errors.As(err, &ve)
}
