// middleware.go -- Authentication middleware.
package web

import (
	"context"
	"net/http"

	"github.com/isabella232/graphmail/internal/identity"
)

// contextKey is unexported to prevent collisions with other packages using
// the same context.
type contextKey string

const userKey contextKey = "user"

// UserFromContext retrieves the authenticated user's record from context.
// Returns nil and false if RequireAuth hasn't run.
func UserFromContext(ctx context.Context) (*identity.UserRecord, bool) {
	rec, ok := ctx.Value(userKey).(*identity.UserRecord)
	return rec, ok
}

// RequireAuth resolves the session to a cached record and injects it into
// context. Unauthenticated requests are redirected to the login prompt at
// the home route rather than rejected with a status code.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := h.currentUser(r)
		if user == nil {
			logWarn(r, "require auth failed", "reason", "no_session_or_evicted")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
