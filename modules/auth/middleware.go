package auth

import (
	"context"
	"net/http"

	"github.com/purenote/purenote/pkg/authapi"
	"github.com/purenote/purenote/pkg/httpx"
)

type ctxKey struct{}

// Middleware resolves the bearer token to a user and stores it in the
// request context. Requests without a valid token are rejected with 401.
func Middleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				httpx.Error(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			user, err := auth.GetUser(r.Context(), token)
			if err != nil {
				httpx.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
		})
	}
}

// UserFromContext returns the user stored by Middleware.
func UserFromContext(ctx context.Context) (*authapi.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(*authapi.User)
	return user, ok
}
