// Package contact handles the contact form: it forwards submissions to the
// support mailbox and keeps a copy of every message in storage.
package contact

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/purenote/purenote/pkg/email"
	"github.com/purenote/purenote/pkg/httpx"
	"github.com/purenote/purenote/pkg/logger"
)

const keyPrefix = "contact:"

// Message is a stored contact form submission.
type Message struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Status    string    `json:"status,omitempty"` // pending when saved without sending
}

// Storage covers the key/value operations this module needs.
type Storage interface {
	SetJSON(ctx context.Context, key string, v any) error
}

type Service struct {
	sender       email.Sender // nil when no provider is configured
	supportEmail string
	storage      Storage
	log          *slog.Logger
	now          func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(sender email.Sender, supportEmail string, storage Storage, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		sender:       sender,
		supportEmail: supportEmail,
		storage:      storage,
		log:          log,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/send-contact-email", s.send)
	r.Post("/save-contact-message", s.save)
	return r
}

type submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (sub submission) validate() string {
	if sub.Name == "" || sub.Email == "" || sub.Subject == "" || sub.Message == "" {
		return "All fields are required"
	}
	if !email.ValidAddress(sub.Email) {
		return "Invalid email format"
	}
	return ""
}

func (s *Service) send(w http.ResponseWriter, r *http.Request) {
	var sub submission
	if err := httpx.Decode(r, &sub); err != nil {
		httpx.Error(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if msg := sub.validate(); msg != "" {
		httpx.Error(w, http.StatusBadRequest, msg)
		return
	}

	if s.sender == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "Email service is not configured. Please add your POSTMARK_SERVER_TOKEN.")
		return
	}

	err := s.sender.SendEmail(r.Context(), email.SendEmailParams{
		SendTo:   s.supportEmail,
		ReplyTo:  sub.Email,
		Subject:  "[Pure Note Contact] " + sub.Subject,
		BodyHTML: renderBody(sub),
		Tag:      "contact-form",
	})
	if err != nil {
		s.log.ErrorContext(r.Context(), "sending contact email", logger.Error(err))
		httpx.Error(w, http.StatusBadGateway, "Failed to send email")
		return
	}

	record := Message{
		Name:      sub.Name,
		Email:     sub.Email,
		Subject:   sub.Subject,
		Body:      sub.Message,
		CreatedAt: s.now().UTC(),
	}
	s.store(r.Context(), record)

	s.log.InfoContext(r.Context(), "contact email sent", "from", sub.Email)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Email sent successfully",
	})
}

// save persists a submission without sending mail. The site falls back to
// this endpoint when the mail provider is down or unconfigured.
func (s *Service) save(w http.ResponseWriter, r *http.Request) {
	var sub submission
	if err := httpx.Decode(r, &sub); err != nil {
		httpx.Error(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if msg := sub.validate(); msg != "" {
		httpx.Error(w, http.StatusBadRequest, msg)
		return
	}

	record := Message{
		Name:      sub.Name,
		Email:     sub.Email,
		Subject:   sub.Subject,
		Body:      sub.Message,
		CreatedAt: s.now().UTC(),
		Status:    "pending",
	}
	id, ok := s.store(r.Context(), record)
	if !ok {
		httpx.Error(w, http.StatusInternalServerError, "Failed to save message")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Message saved successfully",
		"contactId": id,
	})
}

func (s *Service) store(ctx context.Context, record Message) (string, bool) {
	id := fmt.Sprintf("%s%d", keyPrefix, record.CreatedAt.UnixMilli())
	if err := s.storage.SetJSON(ctx, id, record); err != nil {
		s.log.ErrorContext(ctx, "storing contact message", logger.Error(err))
		return "", false
	}
	return id, true
}

func renderBody(sub submission) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Nouveau message de contact</h2>
  <div style="background: #f5f5f5; padding: 20px; border-radius: 8px;">
    <p><strong>Nom:</strong> %s</p>
    <p><strong>Email:</strong> %s</p>
    <p><strong>Sujet:</strong> %s</p>
  </div>
  <div style="background: #fff; padding: 20px; border: 1px solid #e0e0e0; border-radius: 8px;">
    <h3>Message:</h3>
    <p style="white-space: pre-wrap; line-height: 1.6;">%s</p>
  </div>
</div>`,
		html.EscapeString(sub.Name),
		html.EscapeString(sub.Email),
		html.EscapeString(sub.Subject),
		html.EscapeString(sub.Message),
	)
}
