package library

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when another mutation on the same entity is in
	// flight, or when the entity changed between staging and commit.
	// Re-issuing the command may succeed.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned for malformed input. Out-of-range face boxes
	// also match facematch.ErrInvalidGeometry.
	ErrValidation = errors.New("validation error")
)

func notFound(kind Kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

func conflict(kind Kind, id, reason string) error {
	return fmt.Errorf("%w: %s %q %s", ErrConflict, kind, id, reason)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ErrIndexDrift is returned by verification when the incrementally maintained
// index no longer matches a rebuild from the store.
var ErrIndexDrift = errors.New("index drift")
