package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nstepanov/passport/internal/apperrors"
	"github.com/nstepanov/passport/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at, revoked)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) error {
	rows, _ := r.DB.Query(ctx, saveToken, token.ID, token.UserID, token.TokenHash, token.CreatedAt, token.ExpiresAt, token.Revoked)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const getToken = `-- name: GetRefreshToken
SELECT id, user_id, created_at, expires_at, revoked
FROM refresh_tokens
WHERE token_hash = $1
`

// Get token record by hash
// Returns the record even if revoked or expired
func (r *RefreshTokenRepo) Get(ctx context.Context, tokenHash string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getToken, tokenHash)
	token, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.RefreshToken, error) {
		t := models.RefreshToken{TokenHash: tokenHash}
		err := row.Scan(&t.ID, &t.UserID, &t.CreatedAt, &t.ExpiresAt, &t.Revoked)
		return t, err
	})

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrInvalidRefreshToken)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeActiveToken = `-- name: RevokeActiveRefreshToken
UPDATE refresh_tokens
SET revoked = true
WHERE token_hash = $1 AND NOT revoked AND expires_at > $2
RETURNING id, user_id, created_at, expires_at
`

// RevokeActive marks the token revoked and returns it, but only if it is
// still usable at 'now'. The whole check-and-set is one UPDATE: of two
// concurrent calls with the same token exactly one gets a row back, the
// other gets ErrInvalidRefreshToken.
// Absent, expired and already revoked tokens are indistinguishable here.
func (r *RefreshTokenRepo) RevokeActive(ctx context.Context, tokenHash string, now time.Time) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, revokeActiveToken, tokenHash, now)
	token, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.RefreshToken, error) {
		t := models.RefreshToken{TokenHash: tokenHash, Revoked: true}
		err := row.Scan(&t.ID, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
		return t, err
	})

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrInvalidRefreshToken)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeAllByUser = `-- name: RevokeAllRefreshTokensByUser
UPDATE refresh_tokens
SET revoked = true
WHERE user_id = $1 AND NOT revoked
`

func (r *RefreshTokenRepo) RevokeAllByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.DB.Exec(ctx, revokeAllByUser, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}
