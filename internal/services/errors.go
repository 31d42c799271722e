package services

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when the store is missing required settings
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound is returned when a share or object does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned for any rejected credential
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput is returned when a key, prefix or name is unusable
	ErrInvalidInput = errors.New("invalid input")
)

// PartialFailureError reports a multi-step operation that stopped partway.
// Nothing is rolled back; Completed lists the keys already processed.
type PartialFailureError struct {
	Op        string
	Key       string
	Completed []string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s aborted at %q after %d objects: %v", e.Op, e.Key, len(e.Completed), e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}
