package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"order-crm-sync/internal/crm"
	"order-crm-sync/internal/fault"
	"order-crm-sync/internal/server/middleware"
	"order-crm-sync/internal/signuplink/domain"
	"order-crm-sync/internal/signuplink/repository"
	"order-crm-sync/internal/signuplink/service"
)

type memLinkRepo struct {
	mu    sync.Mutex
	links []*domain.SignupLink
}

func (m *memLinkRepo) Create(ctx context.Context, link *domain.SignupLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.Code == link.Code {
			return repository.ErrCodeTaken
		}
	}
	cp := *link
	m.links = append(m.links, &cp)
	return nil
}

func (m *memLinkRepo) Consume(ctx context.Context, remoteID, code string, now time.Time) (*domain.SignupLink, repository.ConsumeOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.RemoteID != remoteID || l.Code != code {
			continue
		}
		if !l.Active || l.Expired(now) {
			l.Active = false
			cp := *l
			return &cp, repository.ConsumeExpired, nil
		}
		if l.Exhausted() {
			cp := *l
			return &cp, repository.ConsumeLimitExceeded, nil
		}
		l.UsageCount++
		cp := *l
		return &cp, repository.ConsumeOK, nil
	}
	return nil, repository.ConsumeNotFound, nil
}

func (m *memLinkRepo) ListByRemote(ctx context.Context, remoteID string) ([]*domain.SignupLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SignupLink
	for i := len(m.links) - 1; i >= 0; i-- {
		if m.links[i].RemoteID == remoteID {
			cp := *m.links[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

type stubProfile struct{}

func (stubProfile) GetContact(ctx context.Context, id string) (*crm.Contact, error) {
	return &crm.Contact{ID: id, CompanyName: "Acme", Email: "ops@acme.example"}, nil
}

type stubResolver struct {
	remoteID string
	err      error
}

func (s stubResolver) RemoteIDFor(ctx context.Context, userID string) (string, error) {
	return s.remoteID, s.err
}

func newTestHandler(resolver stubResolver) *Handler {
	svc := service.NewSignupService(&memLinkRepo{}, stubProfile{}, "https://portal.example.com/signup", nil)
	return NewHandler(svc, resolver, 7*24*time.Hour, 1, nil)
}

func doAuthed(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(middleware.WithPrincipal(req.Context(), "user-1"))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestIssueDefaultsToCallersLink(t *testing.T) {
	h := newTestHandler(stubResolver{remoteID: "C-9"})

	w := doAuthed(h.Issue, http.MethodPost, "/signup-links", `{}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp linkResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RemoteID != "C-9" {
		t.Fatalf("remoteId = %q, want caller's link", resp.RemoteID)
	}
	if resp.UsageLimit != 1 {
		t.Fatalf("usageLimit = %d, want configured default", resp.UsageLimit)
	}
	if !strings.HasPrefix(resp.URL, "https://portal.example.com/signup/") {
		t.Fatalf("url = %q", resp.URL)
	}
}

func TestIssueUnlinkedCallerWithoutRemoteID(t *testing.T) {
	h := newTestHandler(stubResolver{err: fault.New(fault.KindNotFound, "no identity link for user")})

	w := doAuthed(h.Issue, http.MethodPost, "/signup-links", `{}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestIssueExplicitRemoteID(t *testing.T) {
	h := newTestHandler(stubResolver{err: fault.New(fault.KindNotFound, "no identity link for user")})

	w := doAuthed(h.Issue, http.MethodPost, "/signup-links", `{"remoteId":"C-55","ttlDays":1,"usageLimit":3}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp linkResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RemoteID != "C-55" || resp.UsageLimit != 3 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestValidateFlow(t *testing.T) {
	h := newTestHandler(stubResolver{remoteID: "C-9"})

	issue := doAuthed(h.Issue, http.MethodPost, "/signup-links", `{}`)
	var issued linkResponse
	if err := json.Unmarshal(issue.Body.Bytes(), &issued); err != nil {
		t.Fatalf("decode issue: %v", err)
	}

	// Validation is public, no principal needed.
	req := httptest.NewRequest(http.MethodPost, "/signup-links/validate",
		strings.NewReader(`{"remoteId":"C-9","code":"`+issued.Code+`"}`))
	w := httptest.NewRecorder()
	h.Validate(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp validateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Profile == nil || resp.Profile.ID != "C-9" {
		t.Fatalf("profile = %+v", resp.Profile)
	}
	if resp.RemainingUses != 0 {
		t.Fatalf("remainingUses = %d", resp.RemainingUses)
	}

	// Second use exceeds the limit.
	req = httptest.NewRequest(http.MethodPost, "/signup-links/validate",
		strings.NewReader(`{"remoteId":"C-9","code":"`+issued.Code+`"}`))
	w = httptest.NewRecorder()
	h.Validate(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}

func TestValidateUnknownCode(t *testing.T) {
	h := newTestHandler(stubResolver{remoteID: "C-9"})

	req := httptest.NewRequest(http.MethodPost, "/signup-links/validate",
		strings.NewReader(`{"remoteId":"C-9","code":"NOSUCHCODE00"}`))
	w := httptest.NewRecorder()
	h.Validate(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestValidateRequiresBothFields(t *testing.T) {
	h := newTestHandler(stubResolver{remoteID: "C-9"})

	req := httptest.NewRequest(http.MethodPost, "/signup-links/validate", strings.NewReader(`{"code":"X"}`))
	w := httptest.NewRecorder()
	h.Validate(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h := newTestHandler(stubResolver{remoteID: "C-9"})
	doAuthed(h.Issue, http.MethodPost, "/signup-links", `{}`)
	doAuthed(h.Issue, http.MethodPost, "/signup-links", `{}`)

	w := doAuthed(h.History, http.MethodGet, "/signup-links", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp historyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Links) != 2 {
		t.Fatalf("links = %d", len(resp.Links))
	}
}
