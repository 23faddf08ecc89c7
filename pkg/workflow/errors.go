package workflow

import "errors"

var (
	// ErrNotFound is returned when a document, approval line or schedule does not exist
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own or cannot act on the resource
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState is returned when the resource is not in a state that allows the operation
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidInput is returned for malformed or inconsistent input
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicate is returned when a conflicting schedule already exists
	ErrDuplicate = errors.New("duplicate schedule")
)
