// Package authapi is a client for the hosted auth backend's REST surface.
// The API module proxies sign-in/sign-up/profile through it; the password
// recovery flow talks to the recover and user endpoints directly.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/purenote/purenote/pkg/deadline"
)

const defaultRequestTimeout = 15 * time.Second

// Client talks to the auth provider. The anon key authenticates public
// calls; the service key authorizes admin user creation.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client. The base URL and anon key are required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: BaseURL is required", ErrInvalidConfig)
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("%w: AnonKey is required", ErrInvalidConfig)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
	}, nil
}

// SignInWithPassword exchanges credentials for an access token and user.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var out struct {
		AccessToken string  `json:"access_token"`
		User        rawUser `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", c.cfg.AnonKey,
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: "auth backend returned no access token"}
	}
	return &Session{AccessToken: out.AccessToken, User: out.User.user()}, nil
}

// CreateUser provisions an account through the admin endpoint. The email is
// confirmed immediately since no confirmation mail server is configured; no
// session is returned and the caller signs in separately.
func (c *Client) CreateUser(ctx context.Context, email, password, name string) (*User, error) {
	if c.cfg.ServiceKey == "" {
		return nil, fmt.Errorf("%w: ServiceKey is required for user creation", ErrInvalidConfig)
	}
	var out rawUser
	err := c.do(ctx, http.MethodPost, "/admin/users", c.cfg.ServiceKey, map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": map[string]string{"name": name},
	}, &out)
	if err != nil {
		return nil, err
	}
	u := out.user()
	return &u, nil
}

// GetUser resolves an access token to its user. Invalid or expired tokens
// come back as an APIError with a 401 status.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var out rawUser
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &out); err != nil {
		return nil, err
	}
	u := out.user()
	return &u, nil
}

// Recover asks the backend to send a password-recovery email. The mail's
// deep link carries the recovery token in the URL fragment.
func (c *Client) Recover(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/recover", c.cfg.AnonKey,
		map[string]string{"email": email}, nil)
}

// UpdatePassword sets a new password, authenticated by the recovery token
// from the reset deep link.
func (c *Client) UpdatePassword(ctx context.Context, recoveryToken, newPassword string) error {
	return c.do(ctx, http.MethodPut, "/user", recoveryToken,
		map[string]string{"password": newPassword}, nil)
}

// do issues a JSON request under the client's deadline and decodes the
// response into out (when non-nil). Non-2xx responses become an *APIError
// carrying the backend's message. A hung backend surfaces as an error
// satisfying deadline.Exceeded rather than stalling the caller.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	return deadline.Do(ctx, c.cfg.RequestTimeout, func(ctx context.Context) error {
		return c.roundTrip(ctx, method, path, bearer, body, out)
	})
}

func (c *Client) roundTrip(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.cfg.AnonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Join(ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(ErrTransport, err)
	}
	return nil
}
