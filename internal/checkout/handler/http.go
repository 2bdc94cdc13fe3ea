// Package handler exposes the checkout session flow over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"order-crm-sync/internal/checkout/domain"
	"order-crm-sync/internal/checkout/service"
	"order-crm-sync/internal/server/httpx"
	"order-crm-sync/internal/server/middleware"
	"order-crm-sync/internal/telemetry"
	telemetrydomain "order-crm-sync/internal/telemetry/domain"
)

// Requirements are the sync preconditions enforced for this deployment. They
// feed the gate evaluator alongside any stored per-module policies.
type Requirements struct {
	AgreementSigned  bool
	PaymentConfirmed bool
	ContactCreated   bool
}

// DefaultRequirements enforces the full precondition chain.
var DefaultRequirements = Requirements{
	AgreementSigned:  true,
	PaymentConfirmed: true,
	ContactCreated:   true,
}

type Handler struct {
	checkout *service.CheckoutService
	require  Requirements
	emitter  telemetry.EventEmitter
}

func NewHandler(checkout *service.CheckoutService, require Requirements, emitter telemetry.EventEmitter) *Handler {
	return &Handler{checkout: checkout, require: require, emitter: emitter}
}

type createSessionRequest struct {
	Module string `json:"module"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Module    string    `json:"module"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateSession handles POST /checkout/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	var req createSessionRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	session, err := h.checkout.CreateSession(r.Context(), userID, req.Module)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	event := telemetrydomain.New(telemetrydomain.EventSessionCreated, "checkout")
	event.UserID = userID
	event.SessionID = session.ID
	event.Detail = session.Module
	telemetry.EmitAsync(h.emitter, r.Context(), event)

	httpx.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

type companyInfoResponse struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"companyName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	Industry    string    `json:"industry,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type agreementResponse struct {
	ID         string    `json:"id"`
	EnvelopeID string    `json:"envelopeId"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type salesOrderResponse struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	RemoteID    string    `json:"remoteId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type sessionDetailResponse struct {
	Session     sessionResponse      `json:"session"`
	CompanyInfo *companyInfoResponse `json:"companyInfo,omitempty"`
	Agreement   *agreementResponse   `json:"agreement,omitempty"`
	SalesOrder  *salesOrderResponse  `json:"salesOrder,omitempty"`
}

// GetSession handles GET /checkout/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	detail, err := h.checkout.GetSession(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	resp := sessionDetailResponse{Session: toSessionResponse(detail.Session)}
	if detail.CompanyInfo != nil {
		resp.CompanyInfo = toCompanyInfoResponse(detail.CompanyInfo)
	}
	if detail.Agreement != nil {
		resp.Agreement = toAgreementResponse(detail.Agreement)
	}
	if detail.SalesOrder != nil {
		resp.SalesOrder = toSalesOrderResponse(detail.SalesOrder)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

type companyInfoRequest struct {
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Industry    string `json:"industry"`
}

// SubmitCompanyInfo handles POST /checkout/sessions/{id}/company-info.
func (h *Handler) SubmitCompanyInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	var req companyInfoRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	info, err := h.checkout.SubmitCompanyInfo(r.Context(), userID, mux.Vars(r)["id"], service.CompanyInfoInput{
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Industry:    req.Industry,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toCompanyInfoResponse(info))
}

type attachAgreementRequest struct {
	EnvelopeID string `json:"envelopeId"`
}

// AttachAgreement handles POST /checkout/sessions/{id}/agreement.
func (h *Handler) AttachAgreement(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	var req attachAgreementRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	agreement, err := h.checkout.AttachAgreement(r.Context(), userID, mux.Vars(r)["id"], req.EnvelopeID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAgreementResponse(agreement))
}

type orderAmountRequest struct {
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

// SetOrderAmount handles POST /checkout/sessions/{id}/order.
func (h *Handler) SetOrderAmount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	var req orderAmountRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	order, err := h.checkout.SetOrderAmount(r.Context(), userID, mux.Vars(r)["id"], req.AmountCents, req.Currency)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSalesOrderResponse(order))
}

type contactSyncResponse struct {
	RemoteContactID string `json:"remoteContactId"`
	WasUpdate       bool   `json:"wasUpdate"`
}

// CreateContact handles POST /checkout/sessions/{id}/contact.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	sessionID := mux.Vars(r)["id"]
	result, err := h.checkout.CreateOrUpdateContact(r.Context(), userID, sessionID, h.require.AgreementSigned)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	event := telemetrydomain.New(telemetrydomain.EventContactSynced, "checkout")
	event.UserID = userID
	event.SessionID = sessionID
	event.RemoteID = result.RemoteContactID
	telemetry.EmitAsync(h.emitter, r.Context(), event)

	httpx.WriteJSON(w, http.StatusOK, contactSyncResponse{
		RemoteContactID: result.RemoteContactID,
		WasUpdate:       result.WasUpdate,
	})
}

type salesOrderSyncResponse struct {
	RemoteSalesOrderID string `json:"remoteSalesOrderId"`
	RemoteContactID    string `json:"remoteContactId"`
}

// CreateSalesOrder handles POST /checkout/sessions/{id}/sales-order.
func (h *Handler) CreateSalesOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	sessionID := mux.Vars(r)["id"]
	result, err := h.checkout.CreateSalesOrder(r.Context(), userID, sessionID, h.require.PaymentConfirmed, h.require.ContactCreated)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	event := telemetrydomain.New(telemetrydomain.EventSalesOrderSynced, "checkout")
	event.UserID = userID
	event.SessionID = sessionID
	event.RemoteID = result.RemoteSalesOrderID
	telemetry.EmitAsync(h.emitter, r.Context(), event)

	httpx.WriteJSON(w, http.StatusCreated, salesOrderSyncResponse{
		RemoteSalesOrderID: result.RemoteSalesOrderID,
		RemoteContactID:    result.RemoteContactID,
	})
}

func toSessionResponse(s *domain.CheckoutSession) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		Module:    s.Module,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toCompanyInfoResponse(info *domain.CompanyInfo) *companyInfoResponse {
	return &companyInfoResponse{
		ID:          info.ID,
		CompanyName: info.CompanyName,
		Email:       info.Email,
		Phone:       info.Phone,
		Address:     info.Address,
		Industry:    info.Industry,
		CreatedAt:   info.CreatedAt,
	}
}

func toAgreementResponse(a *domain.Agreement) *agreementResponse {
	return &agreementResponse{
		ID:         a.ID,
		EnvelopeID: a.EnvelopeID,
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func toSalesOrderResponse(o *domain.SalesOrder) *salesOrderResponse {
	return &salesOrderResponse{
		ID:          o.ID,
		AmountCents: o.AmountCents,
		Currency:    o.Currency,
		RemoteID:    o.RemoteID,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
