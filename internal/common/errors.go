package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Session state machine errors.
	ErrIllegalTransition = errors.New("illegal session transition")

	// Form validation errors (never sent to the server).
	ErrValidation = errors.New("validation error")
)
