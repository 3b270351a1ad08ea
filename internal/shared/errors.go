package shared

import "errors"

// Error taxonomy shared by every back-office module. Domain packages wrap these
// with a human readable message, e.g. fmt.Errorf("%w: payment exceeds balance", ErrValidation).
var (
	// ErrNotFound indicates the id does not resolve to a live record.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the request violates a business rule.
	ErrValidation = errors.New("validation failed")
	// ErrAccessDenied indicates the actor may not touch the document.
	ErrAccessDenied = errors.New("access denied")
	// ErrDuplicate indicates a unique key (document code) collision.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidState indicates a status transition that the lifecycle forbids.
	ErrInvalidState = errors.New("invalid state transition")
)
