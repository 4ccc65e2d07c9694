package services

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailTaken is returned when registering an email that already
	// belongs to a verified account.
	ErrEmailTaken = errors.New("an account with this email already exists")
	// ErrInvalidCredentials covers both unknown identifiers and wrong
	// passwords so login errors cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email/username or password")
	// ErrInvalidOTP covers wrong, expired, and already-consumed codes.
	ErrInvalidOTP = errors.New("invalid or expired OTP")
	// ErrAlreadyVerified is returned when resending a code to a
	// verified account.
	ErrAlreadyVerified = errors.New("account is already verified")
	// ErrAccountNotFound is returned by the flows that may admit an
	// email has no account (resend, forgot password).
	ErrAccountNotFound = errors.New("no account found for this email")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotVerifiedError is returned when a login is otherwise correct but the
// email has not been verified. It carries the email so the client can
// route to the verification screen.
type NotVerifiedError struct {
	Email string
}

func (e *NotVerifiedError) Error() string {
	return "email not verified"
}
