package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/suqify/grocerynet/internal/auth"
	"github.com/suqify/grocerynet/internal/authz"
	"github.com/suqify/grocerynet/internal/store"
)

// RequireAuth validates the bearer token and populates the request context
// with the caller's principal. The user row is re-read so a deleted account
// or a changed role takes effect immediately, not at token expiry.
func RequireAuth(tokens *auth.Tokens, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication credentials were not provided")
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			user, err := users.GetByID(claims.UserID)
			if err != nil || user == nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			p := authz.Principal{
				UserID:   user.ID,
				Username: user.Username,
				Role:     user.Role,
			}
			notePrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin checks that the authenticated caller has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			writeError(w, http.StatusForbidden, "you do not have permission to perform this action")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": detail})
}
