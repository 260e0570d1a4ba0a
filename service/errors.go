package service

import (
	"errors"
	"fmt"
)

// Caller-visible error kinds. Everything returned by the services matches
// exactly one of these via errors.Is, or is an unexpected internal error.
var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrStorageFailure = errors.New("storage failure")
)

// StorageError reports a failed object-store or metadata-store step. Its
// message names only the step; the cause is reachable through Unwrap for logs.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s", e.Op)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageFailure }

func storageFailure(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
