package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstepanov/passport/internal/apperrors"
	"github.com/nstepanov/passport/internal/models"
	"github.com/nstepanov/passport/internal/repository/postgres"
	"github.com/nstepanov/passport/internal/service/auth/tokenmanager"
	"github.com/nstepanov/passport/internal/testutil"
)

// Fast hasher for tests, argon2 with minimal factors is still argon2
var testHasher = Argon2Hasher{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 8, KeyLen: 16}

func ptr[T any](v T) *T {
	return &v
}

func Test_SessionService(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Begin new db transaction and create a service on top of it
	// Rollback transaction when test stops
	withTx := func(dbpool *pgxpool.Pool, t *testing.T, fn func(s *SessionService, tx pgx.Tx)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			userRepo := &postgres.UserRepo{DB: tx}
			refreshRepo := &postgres.RefreshTokenRepo{DB: tx}

			tokenManager, err := tokenmanager.New(
				tokenmanager.Config{SecretKey: "test-secret-key"},
				refreshRepo,
			)
			require.NoError(t, err, "token manager should be created without errors")

			s, err := NewService(Config{Hasher: testHasher}, tokenManager, userRepo, refreshRepo)
			require.NoError(t, err, "session service couldn't be started")

			fn(s, tx)
		})
	}

	register := func(t *testing.T, s *SessionService) models.User {
		t.Helper()
		user, err := s.Register(t.Context(), RegisterParams{
			Email:    "alice@example.com",
			Password: "Passw0rd1",
			Username: ptr("alice"),
		})
		require.NoError(t, err)
		return user
	}

	deactivate := func(t *testing.T, tx pgx.Tx, userID uuid.UUID) {
		t.Helper()
		_, err := tx.Exec(t.Context(), "UPDATE users SET is_active = false WHERE id = $1", userID)
		require.NoError(t, err)
	}

	t.Run("NewService", func(t *testing.T) {
		t.Run("nil deps rejected", func(t *testing.T) {
			_, err := NewService(Config{}, nil, nil, nil)
			require.Error(t, err)
		})
	})

	t.Run("Register", func(t *testing.T) {
		t.Run("new user ok", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				user, err := s.Register(t.Context(), RegisterParams{
					Email:     "alice@example.com",
					Password:  "Passw0rd1",
					Username:  ptr("alice"),
					FirstName: ptr("Alice"),
				})

				require.NoError(t, err)
				assert.Equal(t, "alice@example.com", user.Email)
				assert.NotEqual(t, uuid.Nil, user.ID)
				assert.NotEqual(t, "Passw0rd1", user.PasswordHash, "plaintext must never be stored")
				assert.Contains(t, user.PasswordHash, "$argon2id$")
			})
		})

		t.Run("invalid fields rejected before the store", func(t *testing.T) {
			tests := []struct {
				name  string
				arg   RegisterParams
				field string
			}{
				{
					name:  "bad email",
					arg:   RegisterParams{Email: "not-an-email", Password: "Passw0rd1"},
					field: "email",
				},
				{
					name:  "weak password",
					arg:   RegisterParams{Email: "alice@example.com", Password: "password"},
					field: "password",
				},
				{
					name:  "bad username",
					arg:   RegisterParams{Email: "alice@example.com", Password: "Passw0rd1", Username: ptr("a!")},
					field: "username",
				},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
						_, err := s.Register(t.Context(), tt.arg)

						var validationErr *apperrors.ValidationError
						require.ErrorAs(t, err, &validationErr)
						assert.Equal(t, tt.field, validationErr.Field)
					})
				})
			}
		})

		t.Run("duplicate email", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				register(t, s)

				_, err := s.Register(t.Context(), RegisterParams{
					Email:    "alice@example.com",
					Password: "Passw0rd1",
				})
				assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
			})
		})

		t.Run("duplicate username", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				register(t, s)

				_, err := s.Register(t.Context(), RegisterParams{
					Email:    "alice2@example.com",
					Password: "Passw0rd1",
					Username: ptr("alice"),
				})
				assert.ErrorIs(t, err, apperrors.ErrUsernameTaken)
			})
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("ok", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				register(t, s)

				pair, err := s.Login(t.Context(), "alice@example.com", "Passw0rd1")

				require.NoError(t, err)
				assert.NotEmpty(t, pair.Access.Value)
				assert.NotEmpty(t, pair.Refresh.Value)
				assert.WithinDuration(t, time.Now().Add(time.Hour), pair.Access.ExpiresAt, time.Second, "default access TTL is one hour")
			})
		})

		t.Run("wrong password and unknown email produce the same error", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				register(t, s)

				_, wrongPwdErr := s.Login(t.Context(), "alice@example.com", "WrongPassw0rd")
				_, noUserErr := s.Login(t.Context(), "nobody@example.com", "Passw0rd1")

				assert.ErrorIs(t, wrongPwdErr, apperrors.ErrInvalidCredentials)
				assert.ErrorIs(t, noUserErr, apperrors.ErrInvalidCredentials)
				assert.Equal(t, wrongPwdErr.Error(), noUserErr.Error(), "responses must not reveal account existence")
			})
		})

		t.Run("deactivated account rejected with correct password", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				user := register(t, s)
				deactivate(t, tx, user.ID)

				_, err := s.Login(t.Context(), "alice@example.com", "Passw0rd1")
				assert.ErrorIs(t, err, apperrors.ErrAccountDeactivated)
			})
		})

		t.Run("bumps updated_at", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				user := register(t, s)

				_, err := tx.Exec(t.Context(), "UPDATE users SET updated_at = updated_at - interval '1 hour' WHERE id = $1", user.ID)
				require.NoError(t, err)

				_, err = s.Login(t.Context(), "alice@example.com", "Passw0rd1")
				require.NoError(t, err)

				var updatedAt time.Time
				err = tx.QueryRow(t.Context(), "SELECT updated_at FROM users WHERE id = $1", user.ID).Scan(&updatedAt)
				require.NoError(t, err)
				assert.True(t, updatedAt.After(user.CreatedAt.Add(-time.Minute)), "login should bump updated_at")
			})
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("rotation scenario", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				register(t, s)

				first, err := s.Login(t.Context(), "alice@example.com", "Passw0rd1")
				require.NoError(t, err)

				// Rotate: new pair, different tokens
				second, err := s.Refresh(t.Context(), first.Refresh.Value)
				require.NoError(t, err)
				assert.NotEqual(t, first.Refresh.Value, second.Refresh.Value)
				assert.NotEqual(t, first.Access.Value, second.Access.Value)

				// The consumed token is dead
				_, err = s.Refresh(t.Context(), first.Refresh.Value)
				assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

				// The replacement still works
				third, err := s.Refresh(t.Context(), second.Refresh.Value)
				require.NoError(t, err)
				assert.NotEmpty(t, third.Refresh.Value)
			})
		})

		t.Run("garbage token rejected", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				_, err := s.Refresh(t.Context(), "made-up-token")
				assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
			})
		})

		t.Run("deactivated account not refreshable", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				user := register(t, s)

				pair, err := s.Login(t.Context(), "alice@example.com", "Passw0rd1")
				require.NoError(t, err)

				deactivate(t, tx, user.ID)

				_, err = s.Refresh(t.Context(), pair.Refresh.Value)
				assert.ErrorIs(t, err, apperrors.ErrAccountDeactivated)
			})
		})
	})

	t.Run("Logout", func(t *testing.T) {
		t.Run("revokes all sessions", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				user := register(t, s)

				// Two devices
				first, err := s.Login(t.Context(), "alice@example.com", "Passw0rd1")
				require.NoError(t, err)
				second, err := s.Login(t.Context(), "alice@example.com", "Passw0rd1")
				require.NoError(t, err)

				require.NoError(t, s.Logout(t.Context(), user.ID))

				_, err = s.Refresh(t.Context(), first.Refresh.Value)
				assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
				_, err = s.Refresh(t.Context(), second.Refresh.Value)
				assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
			})
		})

		t.Run("idempotent", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				user := register(t, s)

				require.NoError(t, s.Logout(t.Context(), user.ID))
				require.NoError(t, s.Logout(t.Context(), user.ID))
			})
		})
	})

	t.Run("Profile", func(t *testing.T) {
		t.Run("ok", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				created := register(t, s)

				user, err := s.Profile(t.Context(), created.ID)
				require.NoError(t, err)
				assert.Equal(t, "alice@example.com", user.Email)
				assert.Equal(t, "alice", *user.Username)
			})
		})

		t.Run("not found", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *SessionService, tx pgx.Tx) {
				_, err := s.Profile(t.Context(), uuid.New())
				assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})
}
