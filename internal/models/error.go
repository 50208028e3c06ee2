package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Verification flow errors
	ErrDomainNotAllowed   = errors.New("email domain is not allowed")
	ErrDeliveryFailed     = errors.New("verification message could not be delivered")
	ErrInvalidCode        = errors.New("verification code does not match")
	ErrCodeExpired        = errors.New("verification code has expired")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrNoPendingChallenge = errors.New("no pending verification challenge")
)
