package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the registration/payment flow.
var (
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrCapacityExceeded means the tournament was already full when the
	// increment ran. Terminal for the registration attempt; never retried
	// automatically.
	ErrCapacityExceeded = errors.New("tournament is already full")

	errAlreadyCounted = errors.New("registration already counted")
	errNotSignedIn    = errors.New("not signed in")
)

// ValidationError is a field-level input failure. It is raised before any
// database write and surfaced inline next to the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
