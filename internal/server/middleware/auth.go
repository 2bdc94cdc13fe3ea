// Package middleware holds the HTTP middleware chain: principal context,
// bearer-token auth, and best-effort audit logging.
package middleware

import (
	"net/http"
	"strings"

	"order-crm-sync/internal/security"
	"order-crm-sync/internal/server/httpx"
)

const bearerPrefix = "bearer "

// Auth returns middleware that validates the Bearer (access) token from the
// Authorization header and sets the principal user id in context.
// publicPaths is the set of exact request paths that do not require a token
// (e.g. webhooks, health, signup-link validation).
func Auth(tokens *security.TokenProvider, publicPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			public := publicPaths[r.URL.Path]

			if token == "" {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				httpx.Unauthorized(w)
				return
			}

			userID, err := tokens.ValidateAccess(token)
			if err != nil {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				httpx.Unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), userID)))
		})
	}
}

// extractBearer returns the Bearer token from the request, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
