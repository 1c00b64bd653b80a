// Package reviews implements the public review feed: anyone can read,
// authenticated users can post, and authors can delete their own entries.
package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/purenote/purenote/modules/auth"
	"github.com/purenote/purenote/pkg/httpx"
	"github.com/purenote/purenote/pkg/kv"
	"github.com/purenote/purenote/pkg/logger"
)

const keyPrefix = "review:"

// Review is a stored user review.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Storage covers the key/value operations this module needs.
type Storage interface {
	SetJSON(ctx context.Context, key string, v any) error
	GetJSON(ctx context.Context, key string, dst any) error
	Delete(ctx context.Context, key string) error
	GetByPrefix(ctx context.Context, prefix string) ([][]byte, error)
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
	r.Get("/", s.list)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.auth))
		r.Post("/", s.create)
		r.Delete("/{id}", s.remove)
	})

	return r
}

// list returns all reviews, newest first.
func (s *Service) list(w http.ResponseWriter, r *http.Request) {
	raw, err := s.storage.GetByPrefix(r.Context(), keyPrefix)
	if err != nil {
		s.log.ErrorContext(r.Context(), "listing reviews", logger.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "Failed to fetch reviews")
		return
	}

	reviews := make([]Review, 0, len(raw))
	for _, data := range raw {
		var rev Review
		if err := json.Unmarshal(data, &rev); err != nil {
			s.log.WarnContext(r.Context(), "skipping malformed review record", logger.Error(err))
			continue
		}
		reviews = append(reviews, rev)
	}

	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})

	httpx.JSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

type createRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Service) create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authorization token required")
		return
	}

	var req createRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		httpx.Error(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		httpx.Error(w, http.StatusBadRequest, "Comment is required")
		return
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}

	now := s.now().UTC()
	review := Review{
		ID:        fmt.Sprintf("%s%d_%s", keyPrefix, now.UnixMilli(), user.ID),
		UserID:    user.ID,
		UserName:  name,
		UserEmail: user.Email,
		Rating:    req.Rating,
		Comment:   comment,
		CreatedAt: now,
	}

	if err := s.storage.SetJSON(r.Context(), review.ID, review); err != nil {
		s.log.ErrorContext(r.Context(), "storing review", logger.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "Failed to create review")
		return
	}

	s.log.InfoContext(r.Context(), "review created", logger.UserID(user.ID), "rating", req.Rating)
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "review": review})
}

func (s *Service) remove(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Authorization token required")
		return
	}

	id := chi.URLParam(r, "id")
	// Only review keys are deletable here; other record types share the
	// same store and must not be reachable through this endpoint.
	if !strings.HasPrefix(id, keyPrefix) {
		httpx.Error(w, http.StatusNotFound, "Review not found")
		return
	}

	var review Review
	if err := s.storage.GetJSON(r.Context(), id, &review); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "Review not found")
			return
		}
		s.log.ErrorContext(r.Context(), "loading review", logger.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "Failed to delete review")
		return
	}

	if review.UserID != user.ID {
		httpx.Error(w, http.StatusForbidden, "You can only delete your own reviews")
		return
	}

	if err := s.storage.Delete(r.Context(), id); err != nil {
		s.log.ErrorContext(r.Context(), "deleting review", logger.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "Failed to delete review")
		return
	}

	s.log.InfoContext(r.Context(), "review deleted", "review_id", id, logger.UserID(user.ID))
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}
