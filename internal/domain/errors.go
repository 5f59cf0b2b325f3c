package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation targets an unknown id.
	// Nothing local has been touched when it is returned.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthenticated is returned when a mutation runs without identity.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidInput is returned for inputs rejected before any mutation.
	ErrInvalidInput = errors.New("invalid input")
)

// RemoteError reports a failed remote call. Local state has already been
// rolled back to its pre-call snapshot when the caller receives it.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsRemote reports whether err carries a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
