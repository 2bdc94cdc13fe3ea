package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"order-crm-sync/internal/audit/domain"
)

type memAuditRepo struct {
	entries []*domain.AuditLog
}

func (m *memAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAuditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	return m.entries, nil
}

func noopNext() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuditRecordsAuthenticatedMutation(t *testing.T) {
	repo := &memAuditRepo{}
	h := Audit(repo)(noopNext())

	req := httptest.NewRequest(http.MethodPost, "/checkout/sessions", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req = req.WithContext(WithPrincipal(req.Context(), "user-3"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.UserID != "user-3" || e.Action != http.MethodPost || e.Resource != "/checkout/sessions" {
		t.Fatalf("entry = %+v", e)
	}
	if e.IP != "203.0.113.9" {
		t.Fatalf("ip = %q, want first X-Forwarded-For hop", e.IP)
	}
}

func TestAuditSkipsReads(t *testing.T) {
	repo := &memAuditRepo{}
	h := Audit(repo)(noopNext())

	req := httptest.NewRequest(http.MethodGet, "/crm/profile", nil)
	req = req.WithContext(WithPrincipal(req.Context(), "user-3"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(repo.entries) != 0 {
		t.Fatalf("entries = %d, reads should not be audited", len(repo.entries))
	}
}

func TestAuditSkipsAnonymousRequests(t *testing.T) {
	repo := &memAuditRepo{}
	h := Audit(repo)(noopNext())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(repo.entries) != 0 {
		t.Fatalf("entries = %d, anonymous requests should not be audited", len(repo.entries))
	}
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "198.51.100.4:52341"
	if got := clientIP(req); got != "198.51.100.4" {
		t.Fatalf("got %q", got)
	}
}
