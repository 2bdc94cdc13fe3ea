package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	checkoutdomain "order-crm-sync/internal/checkout/domain"
	"order-crm-sync/internal/webhook/domain"
)

type fakeCheckout struct {
	paymentCalls   int
	agreementCalls int
	applied        bool
	paymentErr     error
	agreementErr   error
	lastSession    string
	lastEnvelope   string
	lastStatus     checkoutdomain.AgreementStatus
}

func (f *fakeCheckout) MarkPaymentCompleted(ctx context.Context, sessionID string) (bool, error) {
	f.paymentCalls++
	f.lastSession = sessionID
	if f.paymentErr != nil {
		return false, f.paymentErr
	}
	return f.applied, nil
}

func (f *fakeCheckout) ApplyAgreementStatus(ctx context.Context, envelopeID string, status checkoutdomain.AgreementStatus) (bool, error) {
	f.agreementCalls++
	f.lastEnvelope = envelopeID
	f.lastStatus = status
	if f.agreementErr != nil {
		return false, f.agreementErr
	}
	return f.applied, nil
}

type memEventRepo struct {
	mu   sync.Mutex
	seen map[string]*domain.WebhookEvent
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{seen: map[string]*domain.WebhookEvent{}}
}

func (m *memEventRepo) Record(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := event.Provider + "/" + event.ProviderEventID
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = event
	return true, nil
}

func (m *memEventRepo) Get(ctx context.Context, provider, providerEventID string) (*domain.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[provider+"/"+providerEventID], nil
}

func postJSON(t *testing.T, fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/x", strings.NewReader(body))
	w := httptest.NewRecorder()
	fn(w, req)
	return w
}

func TestBillingSettledAdvancesSession(t *testing.T) {
	checkout := &fakeCheckout{applied: true}
	h := NewHandler(checkout, newMemEventRepo(), nil)

	w := postJSON(t, h.Billing, `{"eventId":"evt-1","eventType":"payment","sessionId":"sess-1","status":"settled"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if checkout.paymentCalls != 1 || checkout.lastSession != "sess-1" {
		t.Fatalf("checkout = %+v", checkout)
	}
	var resp webhookResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Received || !resp.Applied || resp.Duplicate {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestBillingDuplicateDeliveryReapplied(t *testing.T) {
	checkout := &fakeCheckout{applied: true}
	h := NewHandler(checkout, newMemEventRepo(), nil)
	body := `{"eventId":"evt-1","sessionId":"sess-1","status":"settled"}`

	if w := postJSON(t, h.Billing, body); w.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d", w.Code)
	}
	// The session has already advanced; the re-apply is a rank-guard no-op.
	checkout.applied = false
	w := postJSON(t, h.Billing, body)
	if w.Code != http.StatusOK {
		t.Fatalf("second delivery status = %d", w.Code)
	}
	if checkout.paymentCalls != 2 {
		t.Fatalf("paymentCalls = %d, want apply on every delivery", checkout.paymentCalls)
	}
	var resp webhookResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Duplicate || resp.Applied {
		t.Fatalf("resp = %+v, want duplicate without a new transition", resp)
	}
}

func TestBillingRetryAfterFailedApply(t *testing.T) {
	checkout := &fakeCheckout{applied: true, paymentErr: errors.New("db unavailable")}
	h := NewHandler(checkout, newMemEventRepo(), nil)
	body := `{"eventId":"evt-1","sessionId":"sess-1","status":"settled"}`

	if w := postJSON(t, h.Billing, body); w.Code != http.StatusInternalServerError {
		t.Fatalf("failed apply status = %d, want 500 so the provider retries", w.Code)
	}

	checkout.paymentErr = nil
	w := postJSON(t, h.Billing, body)
	if w.Code != http.StatusOK {
		t.Fatalf("retry status = %d, body %s", w.Code, w.Body.String())
	}
	if checkout.paymentCalls != 2 {
		t.Fatalf("paymentCalls = %d, retry must re-apply", checkout.paymentCalls)
	}
	var resp webhookResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Duplicate || !resp.Applied {
		t.Fatalf("resp = %+v, want the settled payment applied on retry", resp)
	}
}

func TestEsignatureRetryAfterFailedApply(t *testing.T) {
	checkout := &fakeCheckout{applied: true, agreementErr: errors.New("db unavailable")}
	h := NewHandler(checkout, newMemEventRepo(), nil)
	body := `{"eventId":"evt-7","envelopeId":"env-1","status":"completed"}`

	if w := postJSON(t, h.Esignature, body); w.Code != http.StatusInternalServerError {
		t.Fatalf("failed apply status = %d, want 500 so the provider retries", w.Code)
	}

	checkout.agreementErr = nil
	w := postJSON(t, h.Esignature, body)
	if w.Code != http.StatusOK {
		t.Fatalf("retry status = %d, body %s", w.Code, w.Body.String())
	}
	if checkout.agreementCalls != 2 {
		t.Fatalf("agreementCalls = %d, retry must re-apply", checkout.agreementCalls)
	}
}

func TestBillingIgnoresUnsettledStatus(t *testing.T) {
	checkout := &fakeCheckout{}
	h := NewHandler(checkout, newMemEventRepo(), nil)

	w := postJSON(t, h.Billing, `{"eventId":"evt-2","sessionId":"sess-1","status":"pending"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if checkout.paymentCalls != 0 {
		t.Fatal("non-settled status must not advance the session")
	}
}

func TestBillingRejectsMissingFields(t *testing.T) {
	h := NewHandler(&fakeCheckout{}, newMemEventRepo(), nil)

	if w := postJSON(t, h.Billing, `{"status":"settled"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if w := postJSON(t, h.Billing, `not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestEsignatureAppliesStatus(t *testing.T) {
	checkout := &fakeCheckout{applied: true}
	h := NewHandler(checkout, newMemEventRepo(), nil)

	w := postJSON(t, h.Esignature, `{"eventId":"evt-3","envelopeId":"env-1","status":"completed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if checkout.lastEnvelope != "env-1" || checkout.lastStatus != checkoutdomain.AgreementCompleted {
		t.Fatalf("checkout = %+v", checkout)
	}
}

func TestEsignatureUnknownEnvelopeAcknowledged(t *testing.T) {
	checkout := &fakeCheckout{applied: false}
	h := NewHandler(checkout, newMemEventRepo(), nil)

	w := postJSON(t, h.Esignature, `{"eventId":"evt-4","envelopeId":"missing","status":"declined"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, unknown envelopes must still ack", w.Code)
	}
	var resp webhookResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Applied {
		t.Fatal("nothing should have been applied")
	}
}

func TestEsignatureRejectsUnknownStatus(t *testing.T) {
	h := NewHandler(&fakeCheckout{}, newMemEventRepo(), nil)

	w := postJSON(t, h.Esignature, `{"eventId":"evt-5","envelopeId":"env-1","status":"bogus"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDeliveriesAreRecorded(t *testing.T) {
	repo := newMemEventRepo()
	h := NewHandler(&fakeCheckout{applied: true}, repo, nil)

	postJSON(t, h.Billing, `{"eventId":"evt-6","eventType":"payment","sessionId":"sess-1","status":"settled"}`)

	stored, err := repo.Get(context.Background(), domain.ProviderBilling, "evt-6")
	if err != nil || stored == nil {
		t.Fatalf("stored = %v, err = %v", stored, err)
	}
	if stored.EventType != "payment" || stored.Payload == "" {
		t.Fatalf("stored = %+v", stored)
	}
}
