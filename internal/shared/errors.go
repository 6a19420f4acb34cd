package shared

import "errors"

// Sentinel errors shared across modules. Domain packages wrap these with
// entity detail so handlers can map them to HTTP statuses with errors.Is.
var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing required input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique constraint was violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrConflict indicates a concurrent mutation invalidated an assumption.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition indicates the requested status is not a legal
	// successor of the current status.
	ErrInvalidTransition = errors.New("invalid state transition")
)
