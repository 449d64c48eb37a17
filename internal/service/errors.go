package service

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrChallengeNotFound = errors.New("otp challenge not found")
	ErrChallengeExpired  = errors.New("otp challenge expired")
	ErrCodeMismatch      = errors.New("otp code mismatch")
	ErrDeliveryFailed    = errors.New("otp delivery failed")
	ErrTokenInvalid      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrInternal          = errors.New("internal error")
)

// FieldError is a validation failure carrying the message shown to the
// client. It matches ErrValidation under errors.Is.
type FieldError struct {
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

func invalid(message string) error {
	return &FieldError{Message: message}
}
