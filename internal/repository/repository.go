package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nstepanov/passport/internal/models"
)

// ConstraintViolation reports a unique-constraint failure on insert.
// Field holds the offending column ("email" or "username").
// It is built from the database error code and constraint name, never from
// error message text.
type ConstraintViolation struct {
	Field string
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	Username     *string
	FirstName    *string
	LastName     *string
}

// User repository interface
type UserRepo interface {
	// Create user
	// On duplicate email or username must return *ConstraintViolation
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Bump user's updated_at timestamp
	TouchUser(ctx context.Context, id uuid.UUID) error
}

// RefreshToken repository interface
// Tokens are keyed by their hash, the raw value never reaches the store
type RefreshTokenRepo interface {
	// Save token record
	Save(ctx context.Context, token models.RefreshToken) error

	// Return the token record whatever its state (revoked or expired too)
	// If absent must return apperrors.ErrInvalidRefreshToken
	Get(ctx context.Context, tokenHash string) (models.RefreshToken, error)

	// Revoke the token if it is still active (not revoked, not expired at
	// 'now') and return the revoked record. Must be a single conditional
	// update so two concurrent calls can't both succeed with one token.
	// If no active token matched must return apperrors.ErrInvalidRefreshToken
	RevokeActive(ctx context.Context, tokenHash string, now time.Time) (models.RefreshToken, error)

	// Revoke every non-revoked token of the user, return how many were hit
	RevokeAllByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Storage bundles the repos and lets callers run several calls in one
// database transaction
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}
