package identity

import "net/http"

type Error struct {
	status  int
	message string
}

func (e *Error) Error() string   { return e.message }
func (e *Error) StatusCode() int { return e.status }

var (
	ErrUserExists   = &Error{http.StatusConflict, "User already exist"}
	ErrUserNotFound = &Error{http.StatusUnauthorized, "User does not exist"}
	ErrAuthFailed   = &Error{http.StatusUnauthorized, "Authentication failed"}
)
