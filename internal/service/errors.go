package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/edumind-api/internal/store"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")

	// ErrEmptyFile is returned when an upload has no content.
	ErrEmptyFile = errors.New("file is empty")

	// ErrForeignFileKey is returned when a project references an object
	// outside the caller's upload area.
	ErrForeignFileKey = errors.New("file key does not belong to the user")

	// ErrInvalidCredentials is returned by Authenticate for an unknown email
	// or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// OpError wraps an unexpected failure with the service and operation it
// occurred in.
type OpError struct {
	Service   string
	Operation string
	Message   string
	Err       error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// wrapError returns err unchanged when callers are expected to branch on it
// (not found, duplicates, balance and validation errors), and an *OpError
// otherwise.
func wrapError(service, operation, message string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *OpError
	switch {
	case errors.As(err, &opErr),
		store.IsNotFoundError(err),
		store.IsDuplicateError(err),
		errors.Is(err, store.ErrInsufficientTokens),
		errors.Is(err, store.ErrInvalidEntity):
		return err
	}
	return &OpError{Service: service, Operation: operation, Message: message, Err: err}
}
