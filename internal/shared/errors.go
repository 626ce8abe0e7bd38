package shared

import "errors"

var (
	// ErrNotFound indicates an unknown user, role or assignment reference.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates an inactive user or role referenced in an operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation indicates a business-rule violation detected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a concurrent mutation race, e.g. on the primary role.
	ErrConflict = errors.New("concurrency conflict")
)

// UserSafeMessage maps internal errors to a message safe to surface to callers.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "The requested record could not be found."
	case errors.Is(err, ErrInvalidState):
		return "The referenced record is not active."
	case errors.Is(err, ErrValidation):
		return "The request violates an assignment rule."
	case errors.Is(err, ErrConflict):
		return "The record was modified concurrently. Please retry."
	default:
		return "An unexpected error occurred."
	}
}
