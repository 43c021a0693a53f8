package middleware

import (
	"context"
	"net/http"

	"github.com/nstepanov/passport/internal/handlers/render"
	"github.com/nstepanov/passport/internal/handlers/userctx"
	"github.com/nstepanov/passport/internal/models"
)

type authService interface {
	AuthenticateRequest(ctx context.Context, r *http.Request) (models.User, error)
}

// AuthMiddleware resolves the bearer token into a user and puts it on the
// request context. Every failure is a plain 401, the reason stays server-side.
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.AuthenticateRequest(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
