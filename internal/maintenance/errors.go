package maintenance

import "errors"

// Error values carry a machine-readable kind as their message. Callers
// translate kinds into user-facing text.
var (
	ErrInvalidTransition  = errors.New("invalid_transition")
	ErrPreconditionFailed = errors.New("precondition_failed")
	ErrInvalidAssignee    = errors.New("invalid_assignee")
	ErrForbidden          = errors.New("forbidden")
	ErrTokenNotFound      = errors.New("token_not_found")
	ErrTokenExpired       = errors.New("token_expired")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidInput       = errors.New("invalid_input")
)

var kinds = []error{
	ErrInvalidTransition, ErrPreconditionFailed, ErrInvalidAssignee, ErrForbidden,
	ErrTokenNotFound, ErrTokenExpired, ErrConflict, ErrNotFound, ErrInvalidInput,
}

// Kind returns the taxonomy code of err, or "internal" when err is not a
// domain error.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "internal"
}
