package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nstepanov/passport/internal/handlers/middleware"
	"github.com/nstepanov/passport/internal/logger"
	"github.com/nstepanov/passport/internal/models"
	"github.com/nstepanov/passport/internal/service/auth"
)

type sessionService interface {
	// Register new user
	// Fails with *apperrors.ValidationError on bad input,
	// apperrors.ErrEmailTaken / ErrUsernameTaken on duplicates
	Register(ctx context.Context, arg auth.RegisterParams) (models.User, error)

	// Login with email and password
	// Unknown email and wrong password both fail with
	// apperrors.ErrInvalidCredentials
	Login(ctx context.Context, email string, password string) (models.TokenPair, error)

	// Refresh rotates a refresh token into a new pair
	// Fails with apperrors.ErrInvalidRefreshToken
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Logout revokes all user's refresh tokens
	Logout(ctx context.Context, userID uuid.UUID) error

	// Profile returns the user record
	Profile(ctx context.Context, userID uuid.UUID) (models.User, error)

	// Resolve the user behind the request's bearer token
	AuthenticateRequest(ctx context.Context, r *http.Request) (models.User, error)

	// Access token lifetime, reported as 'expires_in'
	AccessTTL() time.Duration
}

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(s sessionService, l logger.Logger) http.Handler {
	withAuth := middleware.AuthMiddleware(s)

	apiuser := http.NewServeMux()

	apiuser.Handle("POST /register", handleRegister(s, l))
	apiuser.Handle("POST /login", handleLogin(s, l))
	apiuser.Handle("POST /refresh", handleTokenRefresh(s, l))
	apiuser.Handle("POST /logout", withAuth(handleLogout(s, l)))
	apiuser.Handle("GET /me", withAuth(handleUserMe(s, l)))

	root := http.NewServeMux()
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))

	return chain(root,
		middleware.LoggerMiddleware(l),
	)
}
