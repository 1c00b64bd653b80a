// Package stripe speaks to the payment provider's REST API: hosted checkout
// session creation and webhook event verification. Only the slice of the API
// the donation flow needs is covered.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/purenote/purenote/pkg/deadline"
)

const (
	apiBaseURL            = "https://api.stripe.com/v1"
	defaultRequestTimeout = 15 * time.Second
)

// Client creates checkout sessions.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New creates a Client. A client with no secret key is valid but reports
// Configured() == false and refuses to create sessions.
func New(cfg Config, opts ...Option) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	c := &Client{cfg: cfg, baseURL: apiBaseURL, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a secret key is present.
func (c *Client) Configured() bool {
	return c.cfg.SecretKey != ""
}

// CheckoutParams describes a one-off payment checkout session.
type CheckoutParams struct {
	AmountCents   int64  // unit amount in the currency's minor unit
	Currency      string // e.g. "eur"
	ProductName   string
	Description   string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

// CheckoutSession is the created session; URL is where the payer is sent.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession creates a hosted checkout session for a single
// card payment.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if params.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidParams)
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", params.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	if params.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", params.Description)
	}
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var session *CheckoutSession
	err := deadline.Do(ctx, c.cfg.RequestTimeout, func(ctx context.Context) error {
		var err error
		session, err = c.postCheckoutForm(ctx, form)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// postCheckoutForm submits the session form and parses the response. A hung
// provider surfaces as an error satisfying deadline.Exceeded via the bound
// CreateCheckoutSession attaches.
func (c *Client) postCheckoutForm(ctx context.Context, form url.Values) (*CheckoutSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	// Keeps transport-level retries from creating duplicate sessions.
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Join(ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseProviderError(resp)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, errors.Join(ErrTransport, err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("%w: session has no redirect URL", ErrTransport)
	}
	return &session, nil
}

func parseProviderError(resp *http.Response) error {
	provErr := &ProviderError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return provErr
	}
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error.Message != "" {
		provErr.Message = payload.Error.Message
		provErr.Type = payload.Error.Type
	}
	return provErr
}
