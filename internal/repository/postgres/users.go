package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nstepanov/passport/internal/apperrors"
	"github.com/nstepanov/passport/internal/models"
	"github.com/nstepanov/passport/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (email, password_hash, username, first_name, last_name)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, email, username, first_name, last_name, password_hash, is_active, created_at, updated_at
`

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, arg.Email, arg.PasswordHash, arg.Username, arg.FirstName, arg.LastName)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return user, &repository.ConstraintViolation{Field: violatedField(pgErr)}
		}
		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// violatedField maps the violated constraint to the column it guards.
// Constraint names come from the migration, not from error text.
func violatedField(pgErr *pgconn.PgError) string {
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return "username"
	default:
		return "email"
	}
}

const getUserByID = `-- name: GetUserByID
SELECT id, email, username, first_name, last_name, password_hash, is_active, created_at, updated_at
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, email, username, first_name, last_name, password_hash, is_active, created_at, updated_at
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

const touchUser = `-- name: TouchUser
UPDATE users
SET updated_at = now()
WHERE id = $1
`

func (r *UserRepo) TouchUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, touchUser, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
