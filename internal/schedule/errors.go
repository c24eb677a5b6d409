package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrSlotNotFound     = errors.New("slot not found")

	// ErrVersionConflict means another writer updated the schedule document
	// between our read and our conditional write.
	ErrVersionConflict = errors.New("schedule was modified concurrently")
)

// ValidationError covers malformed input and illegal state transitions. It is
// always recoverable by the caller and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError means a candidate schedule overlaps an existing one for the
// same provider and date. The caller must pick different times; nothing is
// merged or partially saved.
type ConflictError struct {
	Date  string
	Start TimeOfDay
	End   TimeOfDay
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule %s %s-%s clashes with an existing schedule", e.Date, e.Start, e.End)
}

// PersistenceError wraps a failed or malformed store interaction.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
