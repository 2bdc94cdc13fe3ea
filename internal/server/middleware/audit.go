package middleware

import (
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"order-crm-sync/internal/audit/domain"
	"order-crm-sync/internal/audit/repository"
)

// Audit returns middleware that records an audit row for every authenticated
// mutating request. Failures to persist are logged, never surfaced to the caller.
func Audit(repo repository.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				return
			}
			userID, ok := GetUserID(r.Context())
			if !ok {
				return
			}

			entry := &domain.AuditLog{
				ID:        uuid.NewString(),
				UserID:    userID,
				Action:    r.Method,
				Resource:  r.URL.Path,
				IP:        clientIP(r),
				CreatedAt: time.Now().UTC(),
			}
			if err := repo.Create(r.Context(), entry); err != nil {
				log.Printf("audit: record %s %s: %v", r.Method, r.URL.Path, err)
			}
		})
	}
}

// clientIP resolves the originating client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		parts := strings.Split(v, ",")
		return strings.TrimSpace(parts[0])
	}
	if v := r.Header.Get("X-Real-Ip"); v != "" {
		return strings.TrimSpace(v)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
