// Package auth exposes the sign-in, sign-up and profile endpoints and the
// bearer-token middleware used by the other API modules. It proxies the
// upstream auth provider; no credentials are stored locally.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/purenote/purenote/pkg/authapi"
	"github.com/purenote/purenote/pkg/httpx"
	"github.com/purenote/purenote/pkg/logger"
)

// Authenticator covers the upstream auth provider operations this module
// needs.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*authapi.Session, error)
	CreateUser(ctx context.Context, email, password, name string) (*authapi.User, error)
	GetUser(ctx context.Context, accessToken string) (*authapi.User, error)
}

type Service struct {
	auth Authenticator
	log  *slog.Logger
}

func NewService(auth Authenticator, log *slog.Logger) *Service {
	return &Service{auth: auth, log: log}
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/signin", s.signIn)
	r.Post("/signup", s.signUp)
	r.Get("/profile", s.profile)
	return r
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.Error(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	sess, err := s.auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		var apiErr *authapi.APIError
		if errors.As(err, &apiErr) {
			s.log.InfoContext(r.Context(), "sign-in rejected", "email", req.Email, "reason", apiErr.Message)
			httpx.Error(w, http.StatusBadRequest, apiErr.Message)
			return
		}
		s.log.ErrorContext(r.Context(), "sign-in failed", logger.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "Internal server error during signin")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"access_token": sess.AccessToken,
		"user":         sess.User,
	})
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Service) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Email, password, and name are required")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		httpx.Error(w, http.StatusBadRequest, "Email, password, and name are required")
		return
	}

	user, err := s.auth.CreateUser(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		var apiErr *authapi.APIError
		if errors.As(err, &apiErr) {
			s.log.InfoContext(r.Context(), "sign-up rejected", "email", req.Email, "reason", apiErr.Message)
			httpx.Error(w, http.StatusBadRequest, apiErr.Message)
			return
		}
		s.log.ErrorContext(r.Context(), "sign-up failed", logger.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "Internal server error during signup")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (s *Service) profile(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	if token == "" {
		httpx.Error(w, http.StatusUnauthorized, "Authorization token required")
		return
	}

	user, err := s.auth.GetUser(r.Context(), token)
	if err != nil {
		httpx.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"user": user})
}

// BearerToken extracts the token from an Authorization: Bearer header,
// empty when absent.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
