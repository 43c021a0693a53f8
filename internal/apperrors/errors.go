package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")

	// Returned on login for both unknown email and wrong password,
	// so responses don't reveal whether the account exists
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrAccountDeactivated = errors.New("account is deactivated")

	// Returned for absent, expired and revoked refresh tokens alike
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	ErrAccessTokenExpired = errors.New("access token expired")
	ErrAccessTokenInvalid = errors.New("access token invalid")
)

// ValidationError describes a single rejected credential field
// It is always safe to show to the caller
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
