package domain

import "errors"

var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthenticated    = errors.New("could not validate credentials")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidInput       = errors.New("invalid input")
)

// PermissionError is returned when an authenticated identity lacks a
// required capability. Required names what would have been accepted.
type PermissionError struct {
	Required string
}

func (e *PermissionError) Error() string {
	return "insufficient permissions. requires: " + e.Required
}

// Is lets errors.Is(err, ErrForbidden) match permission failures.
func (e *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}
