package handlers

import (
	"net/http"
	"time"

	"github.com/nstepanov/passport/internal/handlers/render"
	"github.com/nstepanov/passport/internal/handlers/userctx"
	"github.com/nstepanov/passport/internal/logger"
)

// handleLogout revokes every refresh session of the authenticated user
func handleLogout(s sessionService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if err := s.Logout(r.Context(), user.ID); err != nil {
			l.Error("logout failed", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Message: "Logged out successfully"})
	})
}

// handleUserMe returns the authenticated user's profile
// The password hash never appears in the response shape
func handleUserMe(s sessionService, l logger.Logger) http.Handler {
	type response struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Username  *string   `json:"username,omitempty"`
		FirstName *string   `json:"first_name,omitempty"`
		LastName  *string   `json:"last_name,omitempty"`
		IsActive  bool      `json:"is_active"`
		CreatedAt time.Time `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxUser, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := s.Profile(r.Context(), ctxUser.ID)
		if err != nil {
			code, msg := statusForError(err)
			if code == http.StatusInternalServerError {
				l.Error("profile lookup failed", "error", err, "user_id", ctxUser.ID)
			}
			render.ServiceError(w, msg, code)
			return
		}

		render.JSON(w, response{
			ID:        user.ID.String(),
			Email:     user.Email,
			Username:  user.Username,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			IsActive:  user.IsActive,
			CreatedAt: user.CreatedAt,
		})
	})
}
