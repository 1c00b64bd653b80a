package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purenote/purenote/app/session"
	"github.com/purenote/purenote/pkg/localstore"
)

func authBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/signin", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		if body["password"] != "correct-horse" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":      true,
			"access_token": "tok-abc",
			"user":         map[string]string{"id": "uid-1", "email": body["email"], "name": "Ada"},
		})
	})

	mux.HandleFunc("/signup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		if body["email"] == "taken@x.com" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "A user with this email address has already been registered"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newStore(t *testing.T, baseURL string, storage localstore.Store) *session.Store {
	t.Helper()
	return session.New(session.Config{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
	}, storage)
}

func TestSignIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success populates session", func(t *testing.T) {
		t.Parallel()
		srv := authBackend(t)
		store := newStore(t, srv.URL, localstore.NewMemoryStore())

		res := store.SignIn(ctx, "user@x.com", "correct-horse", false)
		require.True(t, res.Success)
		assert.Empty(t, res.Error)

		require.NotNil(t, store.User())
		assert.Equal(t, "uid-1", store.User().ID)
		assert.Equal(t, "tok-abc", store.AccessToken())
		assert.True(t, store.Authenticated())
		assert.False(t, store.Loading())
	})

	t.Run("backend rejection leaves session untouched", func(t *testing.T) {
		t.Parallel()
		srv := authBackend(t)
		store := newStore(t, srv.URL, localstore.NewMemoryStore())

		res := store.SignIn(ctx, "user@x.com", "wrongpass", false)
		assert.False(t, res.Success)
		assert.Equal(t, "Invalid credentials", res.Error)
		assert.Equal(t, session.KindValidation, res.Kind)

		assert.Nil(t, store.User())
		assert.Empty(t, store.AccessToken())
		assert.False(t, store.Loading())
	})

	t.Run("timeout produces timeout result", func(t *testing.T) {
		t.Parallel()
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}))
		t.Cleanup(slow.Close)

		store := session.New(session.Config{
			BaseURL:        slow.URL,
			RequestTimeout: 50 * time.Millisecond,
		}, localstore.NewMemoryStore())

		res := store.SignIn(ctx, "user@x.com", "correct-horse", false)
		assert.False(t, res.Success)
		assert.Equal(t, session.KindTimeout, res.Kind)
		assert.NotEmpty(t, res.Error)
		assert.False(t, store.Loading())
	})

	t.Run("transport failure produces transport result", func(t *testing.T) {
		t.Parallel()
		// Port is closed: the server is created then immediately shut down.
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		store := newStore(t, srv.URL, localstore.NewMemoryStore())
		res := store.SignIn(ctx, "user@x.com", "correct-horse", false)
		assert.False(t, res.Success)
		assert.Equal(t, session.KindTransport, res.Kind)
		assert.False(t, store.Loading())
	})

	t.Run("malformed response body is a transport failure", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		}))
		t.Cleanup(srv.Close)

		store := newStore(t, srv.URL, localstore.NewMemoryStore())
		res := store.SignIn(ctx, "user@x.com", "correct-horse", false)
		assert.False(t, res.Success)
		assert.Equal(t, session.KindTransport, res.Kind)
	})

	t.Run("remember-me false wipes persisted slots", func(t *testing.T) {
		t.Parallel()
		srv := authBackend(t)
		storage := localstore.NewMemoryStore()

		// Stale values from an earlier remembered session.
		require.NoError(t, storage.Set("pure_note_token", "stale"))
		require.NoError(t, storage.Set("pure_note_remember_me", "true"))

		store := newStore(t, srv.URL, storage)
		res := store.SignIn(ctx, "user@x.com", "correct-horse", false)
		require.True(t, res.Success)
		assert.False(t, store.RememberMe())

		_, ok := storage.Get("pure_note_token")
		assert.False(t, ok)
		_, ok = storage.Get("pure_note_user")
		assert.False(t, ok)
		_, ok = storage.Get("pure_note_remember_me")
		assert.False(t, ok)
	})
}

func TestSignUp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success does not establish a session", func(t *testing.T) {
		t.Parallel()
		srv := authBackend(t)
		store := newStore(t, srv.URL, localstore.NewMemoryStore())

		res := store.SignUp(ctx, "new@x.com", "correct-horse", "New User")
		require.True(t, res.Success)

		// Account creation returns no session; the user signs in next.
		assert.Nil(t, store.User())
		assert.Empty(t, store.AccessToken())
		assert.False(t, store.Loading())
	})

	t.Run("duplicate account reported", func(t *testing.T) {
		t.Parallel()
		srv := authBackend(t)
		store := newStore(t, srv.URL, localstore.NewMemoryStore())

		res := store.SignUp(ctx, "taken@x.com", "correct-horse", "Dup")
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "already been registered")
	})
}

func TestSignOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// After sign-in then sign-out, both user and token are gone and no
	// persisted slots remain.
	srv := authBackend(t)
	storage := localstore.NewMemoryStore()
	store := newStore(t, srv.URL, storage)

	require.True(t, store.SignIn(ctx, "user@x.com", "correct-horse", true).Success)
	require.True(t, store.Authenticated())
	require.True(t, store.RememberMe())

	store.SignOut()

	assert.Nil(t, store.User())
	assert.Empty(t, store.AccessToken())
	assert.False(t, store.Authenticated())
	assert.False(t, store.RememberMe())

	for _, key := range []string{"pure_note_token", "pure_note_user", "pure_note_remember_me"} {
		_, ok := storage.Get(key)
		assert.False(t, ok, "key %s should be erased", key)
	}
}

func TestRestoreSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("remembered session survives restart", func(t *testing.T) {
		t.Parallel()
		srv := authBackend(t)
		storage := localstore.NewMemoryStore()

		first := newStore(t, srv.URL, storage)
		require.True(t, first.SignIn(ctx, "user@x.com", "correct-horse", true).Success)
		wantUser := first.User()
		wantToken := first.AccessToken()

		// Fresh store over the same storage simulates a process restart.
		second := newStore(t, srv.URL, storage)
		second.RestoreSession()

		require.NotNil(t, second.User())
		assert.Equal(t, wantUser, second.User())
		assert.Equal(t, wantToken, second.AccessToken())
		assert.True(t, second.RememberMe())
	})

	t.Run("no remember-me means no session after restart", func(t *testing.T) {
		t.Parallel()
		srv := authBackend(t)
		storage := localstore.NewMemoryStore()

		first := newStore(t, srv.URL, storage)
		require.True(t, first.SignIn(ctx, "user@x.com", "correct-horse", false).Success)
		require.True(t, first.Authenticated())

		second := newStore(t, srv.URL, storage)
		second.RestoreSession()
		assert.Nil(t, second.User())
		assert.Empty(t, second.AccessToken())
	})

	t.Run("malformed persisted user treated as no session", func(t *testing.T) {
		t.Parallel()
		storage := localstore.NewMemoryStore()
		require.NoError(t, storage.Set("pure_note_token", "tok"))
		require.NoError(t, storage.Set("pure_note_user", "{broken"))
		require.NoError(t, storage.Set("pure_note_remember_me", "true"))

		store := newStore(t, "http://unused", storage)
		store.RestoreSession()

		assert.Nil(t, store.User())
		// Defensive cleanup: the bad slots are erased.
		_, ok := storage.Get("pure_note_user")
		assert.False(t, ok)
	})

	t.Run("stale slots without remember-me are erased", func(t *testing.T) {
		t.Parallel()
		storage := localstore.NewMemoryStore()
		require.NoError(t, storage.Set("pure_note_token", "tok"))
		require.NoError(t, storage.Set("pure_note_user", `{"id":"u","email":"e@x.com"}`))

		store := newStore(t, "http://unused", storage)
		store.RestoreSession()

		assert.Nil(t, store.User())
		_, ok := storage.Get("pure_note_token")
		assert.False(t, ok)
	})
}

func TestResultOutcomeExclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Every path yields exactly one of success or error, and loading is
	// false immediately after the call settles.
	srv := authBackend(t)

	cases := []struct {
		name     string
		baseURL  string
		password string
	}{
		{"success", srv.URL, "correct-horse"},
		{"backend error", srv.URL, "wrongpass"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t, tc.baseURL, localstore.NewMemoryStore())
			res := store.SignIn(ctx, "user@x.com", tc.password, false)

			if res.Success {
				assert.Empty(t, res.Error)
				assert.Equal(t, session.KindNone, res.Kind)
			} else {
				assert.NotEmpty(t, res.Error)
				assert.NotEqual(t, session.KindNone, res.Kind)
			}
			assert.False(t, store.Loading())
		})
	}
}
