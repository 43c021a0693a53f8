package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstepanov/passport/internal/apperrors"
	"github.com/nstepanov/passport/internal/models"
	"github.com/nstepanov/passport/internal/repository"
	"github.com/nstepanov/passport/internal/testutil"
)

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Tokens reference users, so each test needs an owner
	createUser := func(t *testing.T, tx pgx.Tx) models.User {
		t.Helper()
		repo := &UserRepo{DB: tx}
		user, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
			Email:        uuid.NewString() + "@example.com",
			PasswordHash: "hashed_password",
		})
		require.NoError(t, err)
		return user
	}

	newToken := func(userID uuid.UUID, hash string, expiresAt time.Time) models.RefreshToken {
		return models.RefreshToken{
			ID:        uuid.New(),
			UserID:    userID,
			TokenHash: hash,
			CreatedAt: time.Now().Truncate(time.Second),
			ExpiresAt: expiresAt,
		}
	}

	t.Run("save and get", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &RefreshTokenRepo{DB: tx}
			user := createUser(t, tx)

			token := newToken(user.ID, "hash-1", time.Now().Add(24*time.Hour))
			require.NoError(t, repo.Save(t.Context(), token))

			stored, err := repo.Get(t.Context(), "hash-1")
			require.NoError(t, err)
			assert.Equal(t, token.ID, stored.ID)
			assert.Equal(t, user.ID, stored.UserID)
			assert.False(t, stored.Revoked)
		})
	})

	t.Run("get absent token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &RefreshTokenRepo{DB: tx}

			_, err := repo.Get(t.Context(), "no-such-hash")
			assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
		})
	})

	t.Run("revoke active exactly once", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &RefreshTokenRepo{DB: tx}
			user := createUser(t, tx)

			token := newToken(user.ID, "hash-1", time.Now().Add(24*time.Hour))
			require.NoError(t, repo.Save(t.Context(), token))

			revoked, err := repo.RevokeActive(t.Context(), "hash-1", time.Now())
			require.NoError(t, err)
			assert.Equal(t, token.ID, revoked.ID)
			assert.True(t, revoked.Revoked)

			// Same conditional update again must match zero rows
			_, err = repo.RevokeActive(t.Context(), "hash-1", time.Now())
			assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

			stored, err := repo.Get(t.Context(), "hash-1")
			require.NoError(t, err)
			assert.True(t, stored.Revoked, "record stays revoked")
		})
	})

	t.Run("revoke expired token fails", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &RefreshTokenRepo{DB: tx}
			user := createUser(t, tx)

			token := newToken(user.ID, "hash-1", time.Now().Add(-time.Minute))
			require.NoError(t, repo.Save(t.Context(), token))

			_, err := repo.RevokeActive(t.Context(), "hash-1", time.Now())
			assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken, "expired, revoked and absent are one error")
		})
	})

	t.Run("revoke absent token fails", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &RefreshTokenRepo{DB: tx}

			_, err := repo.RevokeActive(t.Context(), "no-such-hash", time.Now())
			assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
		})
	})

	t.Run("revoke all by user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &RefreshTokenRepo{DB: tx}
			user := createUser(t, tx)
			other := createUser(t, tx)

			require.NoError(t, repo.Save(t.Context(), newToken(user.ID, "hash-1", time.Now().Add(24*time.Hour))))
			require.NoError(t, repo.Save(t.Context(), newToken(user.ID, "hash-2", time.Now().Add(24*time.Hour))))
			require.NoError(t, repo.Save(t.Context(), newToken(other.ID, "hash-3", time.Now().Add(24*time.Hour))))

			affected, err := repo.RevokeAllByUser(t.Context(), user.ID)
			require.NoError(t, err)
			assert.EqualValues(t, 2, affected)

			// Other user's session untouched
			_, err = repo.RevokeActive(t.Context(), "hash-3", time.Now())
			assert.NoError(t, err)

			// Repeating hits nothing
			affected, err = repo.RevokeAllByUser(t.Context(), user.ID)
			require.NoError(t, err)
			assert.EqualValues(t, 0, affected)
		})
	})
}
