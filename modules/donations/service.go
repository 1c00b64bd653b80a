// Package donations implements checkout-session creation for one-off
// donations and the payment provider's webhook that completes them.
package donations

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/purenote/purenote/pkg/httpx"
	"github.com/purenote/purenote/pkg/kv"
	"github.com/purenote/purenote/pkg/logger"
	"github.com/purenote/purenote/pkg/stripe"
)

const (
	keyPrefix     = "donation:"
	defaultOrigin = "https://purenote.app"

	productName        = "Don à Pure Note"
	defaultDescription = "Soutien au projet Pure Note"
)

// Record is a stored donation, keyed by the provider's checkout session ID.
type Record struct {
	SessionID   string     `json:"sessionId"`
	Amount      float64    `json:"amount"` // euros
	Message     string     `json:"message,omitempty"`
	Email       string     `json:"email,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Status      string     `json:"status"` // pending | completed
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// CheckoutCreator covers the payment provider operations this module needs.
type CheckoutCreator interface {
	Configured() bool
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutParams) (*stripe.CheckoutSession, error)
}

// Storage covers the key/value operations this module needs.
type Storage interface {
	SetJSON(ctx context.Context, key string, v any) error
	GetJSON(ctx context.Context, key string, dst any) error
}

type Service struct {
	payments      CheckoutCreator
	storage       Storage
	webhookSecret string
	log           *slog.Logger
	now           func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(payments CheckoutCreator, storage Storage, webhookSecret string, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		payments:      payments,
		storage:       storage,
		webhookSecret: webhookSecret,
		log:           log,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/create-checkout", s.createCheckout)
	r.Post("/stripe-webhook", s.webhook)
	return r
}

type checkoutRequest struct {
	Amount       float64 `json:"amount"` // euros
	DonorMessage string  `json:"donorMessage"`
	UserEmail    string  `json:"userEmail"`
}

func (s *Service) createCheckout(w http.ResponseWriter, r *http.Request) {
	if !s.payments.Configured() {
		httpx.Error(w, http.StatusServiceUnavailable, "Stripe is not configured. Please add your STRIPE_SECRET_KEY.")
		return
	}

	var req checkoutRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid donation amount")
		return
	}
	if req.Amount < 1 {
		httpx.Error(w, http.StatusBadRequest, "Invalid donation amount")
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = defaultOrigin
	}
	description := req.DonorMessage
	if description == "" {
		description = defaultDescription
	}

	session, err := s.payments.CreateCheckoutSession(r.Context(), stripe.CheckoutParams{
		AmountCents:   int64(math.Round(req.Amount * 100)),
		Currency:      "eur",
		ProductName:   productName,
		Description:   description,
		SuccessURL:    origin + "?donation=success",
		CancelURL:     origin + "?donation=cancelled",
		CustomerEmail: req.UserEmail,
		Metadata: map[string]string{
			"type":    "donation",
			"message": req.DonorMessage,
		},
	})
	if err != nil {
		if errors.Is(err, stripe.ErrNotConfigured) {
			httpx.Error(w, http.StatusServiceUnavailable, "Stripe is not configured. Please add your STRIPE_SECRET_KEY.")
			return
		}
		s.log.ErrorContext(r.Context(), "creating checkout session", logger.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "Failed to create checkout session")
		return
	}

	record := Record{
		SessionID: session.ID,
		Amount:    req.Amount,
		Message:   req.DonorMessage,
		Email:     req.UserEmail,
		CreatedAt: s.now().UTC(),
		Status:    "pending",
	}
	if err := s.storage.SetJSON(r.Context(), keyPrefix+session.ID, record); err != nil {
		// The checkout already exists; losing the record only degrades the
		// webhook bookkeeping, so the payer still gets their URL.
		s.log.ErrorContext(r.Context(), "storing donation record", logger.Error(err), "session_id", session.ID)
	}

	s.log.InfoContext(r.Context(), "checkout session created", "session_id", session.ID, "amount", req.Amount)
	httpx.JSON(w, http.StatusOK, map[string]string{"url": session.URL})
}

func (s *Service) webhook(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		httpx.Error(w, http.StatusBadRequest, "Missing stripe-signature header")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Webhook handler failed")
		return
	}

	event, err := stripe.ConstructEvent(payload, sig, s.webhookSecret)
	if err != nil {
		s.log.WarnContext(r.Context(), "rejecting webhook", logger.Error(err))
		httpx.Error(w, http.StatusBadRequest, "Webhook handler failed")
		return
	}

	if event.Type == stripe.EventCheckoutCompleted {
		var session struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data.Object, &session); err != nil || session.ID == "" {
			httpx.Error(w, http.StatusBadRequest, "Webhook handler failed")
			return
		}
		s.complete(r.Context(), session.ID)
	}

	httpx.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

// complete flips a pending donation to completed. Unknown sessions are
// ignored: the provider retries webhooks and may deliver events for
// checkouts created elsewhere.
func (s *Service) complete(ctx context.Context, sessionID string) {
	key := keyPrefix + sessionID

	var record Record
	if err := s.storage.GetJSON(ctx, key, &record); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.ErrorContext(ctx, "loading donation record", logger.Error(err), "session_id", sessionID)
		}
		return
	}

	completedAt := s.now().UTC()
	record.Status = "completed"
	record.CompletedAt = &completedAt

	if err := s.storage.SetJSON(ctx, key, record); err != nil {
		s.log.ErrorContext(ctx, "updating donation record", logger.Error(err), "session_id", sessionID)
		return
	}
	s.log.InfoContext(ctx, "donation completed", "session_id", sessionID)
}
