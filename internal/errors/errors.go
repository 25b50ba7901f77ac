package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
)

// Machine-readable codes attached to selected errors. The frontend uses
// TOKEN_EXPIRED to trigger an automatic refresh-and-retry.
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
)

// Error is an API-visible error with an HTTP status. Anything that is not an
// *Error is treated as an internal server error by the handlers.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an ad-hoc API error.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Validation builds a 400 with the first actionable message.
func Validation(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// AccountLocked discloses only the remaining wait time, never the attempt count.
func AccountLocked(minutesLeft int) *Error {
	return &Error{
		Status:  http.StatusLocked,
		Message: fmt.Sprintf("Account is locked. Try again in %d min.", minutesLeft),
	}
}

var (
	ErrUsernameTaken = &Error{Status: http.StatusBadRequest, Message: "Username is already taken"}
	ErrEmailTaken    = &Error{Status: http.StatusBadRequest, Message: "Email is already in use"}

	// Uniform message whether the account exists, is inactive, or the
	// password is wrong (anti-enumeration).
	ErrInvalidCredentials = &Error{Status: http.StatusUnauthorized, Message: "Invalid username or password"}

	ErrNotLoggedIn     = &Error{Status: http.StatusUnauthorized, Message: "Log in to access this resource"}
	ErrTokenExpired    = &Error{Status: http.StatusUnauthorized, Code: CodeTokenExpired, Message: "Session has expired - log in again"}
	ErrInvalidToken    = &Error{Status: http.StatusUnauthorized, Message: "Invalid token - log in again"}
	ErrAccountInactive = &Error{Status: http.StatusUnauthorized, Message: "This account is no longer active"}
	ErrInvalidSession  = &Error{Status: http.StatusUnauthorized, Message: "Invalid session"}
	ErrSessionExpired  = &Error{Status: http.StatusUnauthorized, Message: "Session expired"}

	ErrForbidden = &Error{Status: http.StatusForbidden, Message: "You do not have permission to perform this action"}
	ErrNotFound  = &Error{Status: http.StatusNotFound, Message: "Resource not found"}

	ErrResetTokenInvalid = &Error{Status: http.StatusBadRequest, Message: "Reset link is invalid or has expired"}
	ErrWrongPassword     = &Error{Status: http.StatusUnauthorized, Message: "Current password is incorrect"}
	ErrIncorrectPassword = &Error{Status: http.StatusUnauthorized, Message: "Incorrect password"}
	ErrEmailDelivery     = &Error{Status: http.StatusInternalServerError, Message: "Failed to send email"}
)

// AsError unwraps err into an *Error when possible.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if goerrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
