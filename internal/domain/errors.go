package domain

import (
	"errors"
	"fmt"
)

// ValidationError is a wrong-shaped input (code or password length, unknown field).
// It is recovered inline next to the form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ExpiryError means a pending code outlived its window and was discarded.
type ExpiryError struct {
	What string
}

func (e *ExpiryError) Error() string { return e.What + " expired" }

// TransmissionError means the hand-off could not be built or opened.
type TransmissionError struct {
	Err error
}

func (e *TransmissionError) Error() string { return "transmission failed: " + e.Err.Error() }
func (e *TransmissionError) Unwrap() error { return e.Err }

// StorageError wraps a failed read or write of device storage.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

var (
	ErrAccessDenied    = errors.New("admin access denied")
	ErrArtworkNotFound = errors.New("artwork not found")
	ErrNoStagedEdit    = errors.New("no artwork is being edited")
)
