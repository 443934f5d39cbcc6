package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("booking: validation failed")
	// ErrNotFound is returned when a booking or blocked date does not exist.
	ErrNotFound = errors.New("booking: not found")
	// ErrConflict is returned when the slot is already booked or the date is
	// already blocked.
	ErrConflict = errors.New("booking: conflict")
	// ErrTerminalStatus is returned when changing the status of a cancelled booking.
	ErrTerminalStatus = errors.New("booking: cancelled bookings cannot change status")
)

// ValidationError describes malformed booking input.
type ValidationError struct {
	Field   string
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "booking: " + e.Message
	}
	return fmt.Sprintf("booking: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
