// Package plans tracks which subscription plan each user is on. Reading is
// forgiving: without a valid token the caller is simply on the free plan.
package plans

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/purenote/purenote/modules/auth"
	"github.com/purenote/purenote/pkg/httpx"
	"github.com/purenote/purenote/pkg/kv"
	"github.com/purenote/purenote/pkg/logger"
)

const (
	keyPrefix   = "user_plan:"
	defaultPlan = "free"
)

var knownPlans = []string{"free", "pro", "team"}

// Record is a stored plan selection.
type Record struct {
	Plan      string    `json:"plan"`
	UserID    string    `json:"userId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Storage covers the key/value operations this module needs.
type Storage interface {
	SetJSON(ctx context.Context, key string, v any) error
	GetJSON(ctx context.Context, key string, dst any) error
}

type Service struct {
	storage Storage
	auth    auth.Authenticator
	log     *slog.Logger
	now     func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(storage Storage, authenticator auth.Authenticator, log *slog.Logger, opts ...Option) *Service {
	s := &Service{storage: storage, auth: authenticator, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/user-plan", s.get)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.auth))
		r.Post("/update-plan", s.update)
	})

	return r
}

// get never fails: anonymous callers, invalid tokens and missing records all
// resolve to the free plan.
func (s *Service) get(w http.ResponseWriter, r *http.Request) {
	free := map[string]string{"plan": defaultPlan}

	token := auth.BearerToken(r)
	if token == "" {
		httpx.JSON(w, http.StatusOK, free)
		return
	}

	user, err := s.auth.GetUser(r.Context(), token)
	if err != nil {
		httpx.JSON(w, http.StatusOK, free)
		return
	}

	var record Record
	if err := s.storage.GetJSON(r.Context(), keyPrefix+user.ID, &record); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.ErrorContext(r.Context(), "loading plan", logger.Error(err), logger.UserID(user.ID))
		}
		httpx.JSON(w, http.StatusOK, free)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"plan": record.Plan})
}

type updateRequest struct {
	Plan string `json:"plan"`
}

func (s *Service) update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authorization token required")
		return
	}

	var req updateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid plan")
		return
	}
	if !slices.Contains(knownPlans, req.Plan) {
		httpx.Error(w, http.StatusBadRequest, "Invalid plan")
		return
	}

	record := Record{
		Plan:      req.Plan,
		UserID:    user.ID,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.storage.SetJSON(r.Context(), keyPrefix+user.ID, record); err != nil {
		s.log.ErrorContext(r.Context(), "storing plan", logger.Error(err), logger.UserID(user.ID))
		httpx.Error(w, http.StatusInternalServerError, "Failed to update plan")
		return
	}

	s.log.InfoContext(r.Context(), "plan updated", logger.UserID(user.ID), "plan", req.Plan)
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "plan": req.Plan})
}
