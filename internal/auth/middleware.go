package auth

import (
	"net/http"
	"strings"

	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/api"
)

// RequireAuth resolves the Authorization header to an Identity and stores it
// in the request context. Requests without a valid bearer token get 401.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			api.Failure(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		id, err := m.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			api.Failure(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
	})
}

// RequireAdmin rejects callers without the admin role. Must run after
// RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			api.Failure(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if !id.IsAdmin() {
			api.Failure(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
