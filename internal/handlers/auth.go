package handlers

import (
	"errors"
	"net/http"

	"github.com/nstepanov/passport/internal/apperrors"
	"github.com/nstepanov/passport/internal/handlers/render"
	"github.com/nstepanov/passport/internal/logger"
	"github.com/nstepanov/passport/internal/models"
	"github.com/nstepanov/passport/internal/service/auth"
)

// tokenResponse is the shared shape of login and refresh replies.
// The raw refresh token appears here once and is never shown again.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newTokenResponse(pair models.TokenPair, s sessionService) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL().Seconds()),
	}
}

func handleRegister(s sessionService, l logger.Logger) http.Handler {
	type request struct {
		Email     string  `json:"email" validate:"required"`
		Password  string  `json:"password" validate:"required"`
		Username  *string `json:"username"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	type response struct {
		UserID  string `json:"user_id"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, err := s.Register(r.Context(), auth.RegisterParams{
			Email:     data.Email,
			Password:  data.Password,
			Username:  data.Username,
			FirstName: data.FirstName,
			LastName:  data.LastName,
		})
		if err != nil {
			var validationErr *apperrors.ValidationError
			if errors.As(err, &validationErr) {
				render.FieldError(w, validationErr.Field, validationErr.Reason)
				return
			}

			code, msg := statusForError(err)
			if code == http.StatusInternalServerError {
				l.Error("registration failed", "error", err)
			}
			render.ServiceError(w, msg, code)
			return
		}

		render.JSONWithStatus(w, response{
			UserID:  user.ID.String(),
			Email:   user.Email,
			Message: "User registered successfully",
		}, http.StatusCreated)
	})
}

func handleLogin(s sessionService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := s.Login(r.Context(), data.Email, data.Password)
		if err != nil {
			code, msg := statusForError(err)
			if code == http.StatusInternalServerError {
				l.Error("login failed", "error", err)
			}
			render.ServiceError(w, msg, code)
			return
		}

		render.JSON(w, newTokenResponse(pair, s))
	})
}

func handleTokenRefresh(s sessionService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := s.Refresh(r.Context(), data.RefreshToken)
		if err != nil {
			code, msg := statusForError(err)
			if code == http.StatusInternalServerError {
				l.Error("token refresh failed", "error", err)
			}
			render.ServiceError(w, msg, code)
			return
		}

		render.JSON(w, newTokenResponse(pair, s))
	})
}
