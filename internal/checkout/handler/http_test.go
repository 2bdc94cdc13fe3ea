package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"order-crm-sync/internal/checkout/domain"
	"order-crm-sync/internal/checkout/service"
	"order-crm-sync/internal/crm"
	"order-crm-sync/internal/fault"
	"order-crm-sync/internal/gate/engine"
	"order-crm-sync/internal/server/middleware"
)

type memRepo struct {
	sessions    map[string]*domain.CheckoutSession
	companyInfo map[string]*domain.CompanyInfo
	agreements  map[string]*domain.Agreement
	orders      map[string]*domain.SalesOrder
}

func newMemRepo() *memRepo {
	return &memRepo{
		sessions:    map[string]*domain.CheckoutSession{},
		companyInfo: map[string]*domain.CompanyInfo{},
		agreements:  map[string]*domain.Agreement{},
		orders:      map[string]*domain.SalesOrder{},
	}
}

func (m *memRepo) CreateSession(ctx context.Context, s *domain.CheckoutSession) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memRepo) GetSessionForUser(ctx context.Context, id, userID string) (*domain.CheckoutSession, error) {
	s := m.sessions[id]
	if s == nil || s.UserID != userID {
		return nil, nil
	}
	return s, nil
}

func (m *memRepo) AdvanceStatus(ctx context.Context, sessionID string, target domain.Status) (bool, error) {
	s := m.sessions[sessionID]
	if s == nil || s.Status.Rank() >= target.Rank() {
		return false, nil
	}
	s.Status = target
	return true, nil
}

func (m *memRepo) CreateCompanyInfo(ctx context.Context, info *domain.CompanyInfo) error {
	m.companyInfo[info.CheckoutSessionID] = info
	return nil
}

func (m *memRepo) GetCompanyInfo(ctx context.Context, sessionID string) (*domain.CompanyInfo, error) {
	return m.companyInfo[sessionID], nil
}

func (m *memRepo) CreateAgreement(ctx context.Context, a *domain.Agreement) error {
	m.agreements[a.CheckoutSessionID] = a
	return nil
}

func (m *memRepo) GetAgreement(ctx context.Context, sessionID string) (*domain.Agreement, error) {
	return m.agreements[sessionID], nil
}

func (m *memRepo) UpdateAgreementStatusByEnvelope(ctx context.Context, envelopeID string, status domain.AgreementStatus) (bool, error) {
	for _, a := range m.agreements {
		if a.EnvelopeID == envelopeID {
			if a.Status.Rank() >= status.Rank() {
				return false, nil
			}
			a.Status = status
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) GetSalesOrder(ctx context.Context, sessionID string) (*domain.SalesOrder, error) {
	return m.orders[sessionID], nil
}

func (m *memRepo) UpsertSalesOrder(ctx context.Context, o *domain.SalesOrder) error {
	m.orders[o.CheckoutSessionID] = o
	return nil
}

type stubLinker struct{}

func (stubLinker) LinkContact(ctx context.Context, userID string, in crm.ContactInput) (string, bool, error) {
	return "C-1", false, nil
}

func (stubLinker) RemoteIDFor(ctx context.Context, userID string) (string, error) {
	return "C-1", nil
}

type stubOrders struct{}

func (stubOrders) CreateSalesOrder(ctx context.Context, in crm.SalesOrderInput) (*crm.SalesOrder, error) {
	return &crm.SalesOrder{ID: "SO-1", ContactID: in.ContactID, AmountCents: in.AmountCents, Currency: in.Currency}, nil
}

func newTestHandler() (*Handler, *memRepo) {
	repo := newMemRepo()
	svc := service.NewCheckoutService(repo, stubLinker{}, stubOrders{}, engine.NewOPAEvaluator(nil))
	return NewHandler(svc, Requirements{}, nil), repo
}

func doRequest(h http.HandlerFunc, method, target, body string, vars map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(middleware.WithPrincipal(req.Context(), "user-1"))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestCreateSessionEndpoint(t *testing.T) {
	h, repo := newTestHandler()

	w := doRequest(h.CreateSession, http.MethodPost, "/checkout/sessions", `{"module":"analytics-suite"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp sessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != string(domain.StatusCreated) || resp.Module != "analytics-suite" {
		t.Fatalf("resp = %+v", resp)
	}
	if repo.sessions[resp.ID] == nil {
		t.Fatal("session not persisted")
	}
}

func TestCreateSessionRejectsMissingModule(t *testing.T) {
	h, _ := newTestHandler()

	w := doRequest(h.CreateSession, http.MethodPost, "/checkout/sessions", `{}`, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestCreateSessionRequiresPrincipal(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/checkout/sessions", strings.NewReader(`{"module":"m"}`))
	w := httptest.NewRecorder()
	h.CreateSession(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestGetSessionNotOwned(t *testing.T) {
	h, repo := newTestHandler()
	repo.sessions["s1"] = &domain.CheckoutSession{ID: "s1", UserID: "someone-else", Module: "m", Status: domain.StatusCreated}

	w := doRequest(h.GetSession, http.MethodGet, "/checkout/sessions/s1", "", map[string]string{"id": "s1"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCompanyInfoResubmitConflicts(t *testing.T) {
	h, repo := newTestHandler()
	repo.sessions["s1"] = &domain.CheckoutSession{ID: "s1", UserID: "user-1", Module: "m", Status: domain.StatusCreated}
	body := `{"companyName":"Acme","email":"ops@acme.example"}`
	vars := map[string]string{"id": "s1"}

	if w := doRequest(h.SubmitCompanyInfo, http.MethodPost, "/checkout/sessions/s1/company-info", body, vars); w.Code != http.StatusCreated {
		t.Fatalf("first submit status = %d", w.Code)
	}
	w := doRequest(h.SubmitCompanyInfo, http.MethodPost, "/checkout/sessions/s1/company-info", body, vars)
	if w.Code != http.StatusConflict {
		t.Fatalf("resubmit status = %d, want 409", w.Code)
	}
}

func TestContactEndpointFullFlow(t *testing.T) {
	h, repo := newTestHandler()
	repo.sessions["s1"] = &domain.CheckoutSession{ID: "s1", UserID: "user-1", Module: "m", Status: domain.StatusCreated}
	vars := map[string]string{"id": "s1"}

	// Denied before company info exists.
	w := doRequest(h.CreateContact, http.MethodPost, "/checkout/sessions/s1/contact", "", vars)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 before company info", w.Code)
	}

	body := `{"companyName":"Acme","email":"ops@acme.example"}`
	if w := doRequest(h.SubmitCompanyInfo, http.MethodPost, "/checkout/sessions/s1/company-info", body, vars); w.Code != http.StatusCreated {
		t.Fatalf("company info status = %d", w.Code)
	}

	w = doRequest(h.CreateContact, http.MethodPost, "/checkout/sessions/s1/contact", "", vars)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp contactSyncResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RemoteContactID != "C-1" {
		t.Fatalf("resp = %+v", resp)
	}
	if repo.sessions["s1"].Status != domain.StatusContactCreated {
		t.Fatalf("status = %s", repo.sessions["s1"].Status)
	}
}

func TestErrorBodyKind(t *testing.T) {
	h, _ := newTestHandler()

	w := doRequest(h.GetSession, http.MethodGet, "/checkout/sessions/none", "", map[string]string{"id": "none"})
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Kind != fault.KindNotFound.String() {
		t.Fatalf("kind = %q", body.Kind)
	}
}
