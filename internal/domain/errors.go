package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidContentType is returned for a content type outside the known enum.
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrInvalidTaskStatus is returned for a status outside PENDING, SUCCESS and FAILURE.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidStatusTransition is returned when content leaves a terminal state
	// or a terminal state is entered twice.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrInvalidOption is returned when a generation parameter is out of range.
	ErrInvalidOption = errors.New("invalid generation option")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
