// Package session owns the authenticated-user state of the application
// shell: who is signed in, their access token, and whether the session is
// remembered across restarts. It is the only place that calls the auth
// endpoints or touches the persisted credential slots.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/purenote/purenote/pkg/deadline"
	"github.com/purenote/purenote/pkg/localstore"
)

// Persisted slot keys, shared with earlier releases; changing them logs
// every remembered user out.
const (
	keyToken      = "pure_note_token"
	keyUser       = "pure_note_user"
	keyRememberMe = "pure_note_remember_me"
)

// Fallback messages for failures the backend gave no message for.
const (
	msgSignInFailed = "Sign in failed"
	msgSignUpFailed = "Could not create the account"
	msgTimeout      = "The request timed out. Please try again."
	msgUnexpected   = "An unexpected error occurred"
	msgBadResponse  = "The server returned an unexpected response"
)

// User is the signed-in account as the backend reports it.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Config for the session store.
type Config struct {
	// BaseURL of the Pure Note API.
	BaseURL string `env:"PURENOTE_API_URL" envDefault:"http://localhost:8080"`
	// APIKey sent as a bearer on anonymous calls, when the deployment
	// fronts the API with one.
	APIKey string `env:"PURENOTE_API_KEY"`
	// RequestTimeout bounds each sign-in/sign-up call.
	RequestTimeout time.Duration `env:"PURENOTE_AUTH_TIMEOUT" envDefault:"15s"`
}

// Store is the session manager. One instance exists per application run;
// the rendering layer receives it by reference and reads User/Loading to
// decide what to show.
type Store struct {
	cfg     Config
	http    *http.Client
	storage localstore.Store

	mu          sync.RWMutex
	user        *User
	accessToken string
	rememberMe  bool

	// loading is advisory: callers are expected to disable the triggering
	// control while true. The store does not serialize concurrent calls;
	// if two sign-ins race, the later completion wins.
	loading atomic.Bool
}

// Option configures the store.
type Option func(*Store)

// WithHTTPClient overrides the HTTP client, for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(s *Store) {
		if h != nil {
			s.http = h
		}
	}
}

// New creates a session store. The storage holds the remembered credential
// slots; pass a localstore.MemoryStore to disable persistence.
func New(cfg Config, storage localstore.Store, opts ...Option) *Store {
	s := &Store{
		cfg:     cfg,
		http:    &http.Client{},
		storage: storage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RestoreSession loads a remembered session from storage. It runs once at
// startup, never touches the network, and surfaces no error: malformed
// persisted data reads as "no session" and is discarded. When remember-me
// is off, any stale persisted values are erased.
func (s *Store) RestoreSession() {
	remembered, _ := s.storage.Get(keyRememberMe)
	if remembered != "true" {
		s.clearPersisted()
		return
	}

	token, okToken := s.storage.Get(keyToken)
	rawUser, okUser := s.storage.Get(keyUser)
	if !okToken || !okUser || token == "" {
		s.clearPersisted()
		return
	}

	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || user.ID == "" {
		s.clearPersisted()
		return
	}

	s.mu.Lock()
	s.user = &user
	s.accessToken = token
	s.rememberMe = true
	s.mu.Unlock()
}

// SignIn exchanges credentials for a session. Exactly one outcome path runs
// and the loading flag is reset before returning on every one of them. On
// failure the in-memory session is left untouched.
func (s *Store) SignIn(ctx context.Context, email, password string, rememberMe bool) Result {
	s.loading.Store(true)
	defer s.loading.Store(false)

	var payload struct {
		AccessToken string `json:"access_token"`
		User        *User  `json:"user"`
		Error       string `json:"error"`
	}
	status, err := s.postJSON(ctx, "/signin", map[string]string{
		"email":    email,
		"password": password,
	}, &payload)
	if err != nil {
		if deadline.Exceeded(err) {
			return fail(KindTimeout, msgTimeout)
		}
		return fail(KindTransport, msgUnexpected)
	}

	if status < 200 || status > 299 {
		message := payload.Error
		if message == "" {
			message = msgSignInFailed
		}
		return fail(kindFromStatus(status), message)
	}

	if payload.AccessToken == "" || payload.User == nil {
		return fail(KindTransport, msgBadResponse)
	}

	s.mu.Lock()
	s.user = payload.User
	s.accessToken = payload.AccessToken
	s.rememberMe = rememberMe
	s.mu.Unlock()

	if rememberMe {
		s.persist(payload.User, payload.AccessToken)
	} else {
		// The in-memory session stands alone for this run; nothing may
		// remain on disk once this call returns.
		s.clearPersisted()
	}

	return ok()
}

// SignUp creates an account. The account-creation endpoint returns no
// usable session, so the caller signs in separately afterwards.
func (s *Store) SignUp(ctx context.Context, email, password, name string) Result {
	s.loading.Store(true)
	defer s.loading.Store(false)

	var payload struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	status, err := s.postJSON(ctx, "/signup", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &payload)
	if err != nil {
		if deadline.Exceeded(err) {
			return fail(KindTimeout, msgTimeout)
		}
		return fail(KindTransport, msgUnexpected)
	}

	if status < 200 || status > 299 {
		message := payload.Error
		if message == "" {
			message = msgSignUpFailed
		}
		return fail(kindFromStatus(status), message)
	}

	return ok()
}

// SignOut invalidates the session locally: persisted slots erased, memory
// cleared. No network call is made; the backend token is left to expire on
// its own.
func (s *Store) SignOut() {
	s.clearPersisted()

	s.mu.Lock()
	s.user = nil
	s.accessToken = ""
	s.rememberMe = false
	s.mu.Unlock()
}

// User returns a copy of the signed-in user, or nil.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// AccessToken returns the bearer credential, empty when signed out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Authenticated reports whether a user is signed in.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.accessToken != ""
}

// RememberMe reports whether the current session is persisted across
// restarts.
func (s *Store) RememberMe() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rememberMe
}

// Loading reports whether a sign-in or sign-up call is outstanding.
func (s *Store) Loading() bool {
	return s.loading.Load()
}

func (s *Store) persist(user *User, token string) {
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	_ = s.storage.Set(keyToken, token)
	_ = s.storage.Set(keyUser, string(data))
	_ = s.storage.Set(keyRememberMe, "true")
}

func (s *Store) clearPersisted() {
	_ = s.storage.Delete(keyToken)
	_ = s.storage.Delete(keyUser)
	_ = s.storage.Delete(keyRememberMe)
}

// postJSON sends body to path under the store's deadline and decodes the
// response into out regardless of status, since error payloads share the
// response shape. It returns the HTTP status and any transport error; a
// response body that fails to decode is a transport error.
func (s *Store) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	var status int
	err = deadline.Do(ctx, s.cfg.RequestTimeout, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if s.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
		}

		resp, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		if len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return status, nil
}
