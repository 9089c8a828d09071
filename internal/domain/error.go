package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound              = errors.New("entity not found")
	ErrAlreadyExists         = errors.New("entity already exists")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrInvalidTransition     = errors.New("operation not valid for current job state")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrRendererNotConfigured = errors.New("remote renderer url or webhook secret not configured")
	ErrInvalidExecContext    = errors.New("invalid query execution context")
	ErrReadDatabaseRow       = errors.New("failed to read database row")
	ErrOperationFailed       = errors.New("operation failed")
	ErrLockHeld              = errors.New("lock already held")
)

// RemoteError is returned after the renderer submission retry budget is
// exhausted. It keeps the last HTTP status and response body for logs.
type RemoteError struct {
	Status   int
	Body     string
	Attempts int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote renderer error after %d attempts (status %d): %s", e.Attempts, e.Status, e.Body)
}

// IsRemoteError reports whether err is a RemoteError and returns it.
func IsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
