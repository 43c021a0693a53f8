package handlers

import (
	"errors"
	"net/http"

	"github.com/nstepanov/passport/internal/apperrors"
)

// statusForError maps service errors to transport status and caller-facing
// message. Pure function, the only place HTTP codes are decided. Anything
// unrecognized is reported generically so internal detail never leaks.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrEmailTaken):
		return http.StatusConflict, "Email already registered"
	case errors.Is(err, apperrors.ErrUsernameTaken):
		return http.StatusConflict, "Username already taken"
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, apperrors.ErrAccountDeactivated):
		return http.StatusForbidden, "Account is deactivated"
	case errors.Is(err, apperrors.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "Invalid refresh token"
	case errors.Is(err, apperrors.ErrAccessTokenExpired):
		return http.StatusUnauthorized, "Access token expired"
	case errors.Is(err, apperrors.ErrAccessTokenInvalid):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperrors.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
