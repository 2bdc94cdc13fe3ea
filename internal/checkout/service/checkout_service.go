// Package service implements the checkout session state machine: precondition
// gates, remote contact/sales-order sync, and advance-only status transitions.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"order-crm-sync/internal/checkout/domain"
	"order-crm-sync/internal/crm"
	"order-crm-sync/internal/fault"
	"order-crm-sync/internal/gate/engine"
)

// SessionRepo is the minimal checkout repository needed by the service.
type SessionRepo interface {
	CreateSession(ctx context.Context, s *domain.CheckoutSession) error
	GetSessionForUser(ctx context.Context, id, userID string) (*domain.CheckoutSession, error)
	AdvanceStatus(ctx context.Context, sessionID string, target domain.Status) (bool, error)
	CreateCompanyInfo(ctx context.Context, info *domain.CompanyInfo) error
	GetCompanyInfo(ctx context.Context, sessionID string) (*domain.CompanyInfo, error)
	CreateAgreement(ctx context.Context, a *domain.Agreement) error
	GetAgreement(ctx context.Context, sessionID string) (*domain.Agreement, error)
	UpdateAgreementStatusByEnvelope(ctx context.Context, envelopeID string, status domain.AgreementStatus) (bool, error)
	GetSalesOrder(ctx context.Context, sessionID string) (*domain.SalesOrder, error)
	UpsertSalesOrder(ctx context.Context, o *domain.SalesOrder) error
}

// ContactLinker is the identity-link sync surface needed by the service.
type ContactLinker interface {
	LinkContact(ctx context.Context, userID string, in crm.ContactInput) (remoteID string, wasUpdate bool, err error)
	RemoteIDFor(ctx context.Context, userID string) (string, error)
}

// OrderAPI is the minimal CRM surface needed by the service.
type OrderAPI interface {
	CreateSalesOrder(ctx context.Context, in crm.SalesOrderInput) (*crm.SalesOrder, error)
}

// CheckoutService drives a purchase through its externally visible stages.
type CheckoutService struct {
	repo   SessionRepo
	linker ContactLinker
	orders OrderAPI
	gates  engine.Evaluator
}

// NewCheckoutService returns a CheckoutService with the given dependencies.
func NewCheckoutService(repo SessionRepo, linker ContactLinker, orders OrderAPI, gates engine.Evaluator) *CheckoutService {
	return &CheckoutService{repo: repo, linker: linker, orders: orders, gates: gates}
}

// CreateSession begins a purchase for the given user and product module.
func (s *CheckoutService) CreateSession(ctx context.Context, userID, module string) (*domain.CheckoutSession, error) {
	if module == "" {
		return nil, fault.New(fault.KindPreconditionFailed, "module required")
	}
	now := time.Now().UTC()
	session := &domain.CheckoutSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		Module:    module,
		Status:    domain.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "persist checkout session", err)
	}
	return session, nil
}

// SessionDetail is a session with its owned records (any of which may be nil).
type SessionDetail struct {
	Session     *domain.CheckoutSession
	CompanyInfo *domain.CompanyInfo
	Agreement   *domain.Agreement
	SalesOrder  *domain.SalesOrder
}

// GetSession returns the session and its owned records for the owning user.
func (s *CheckoutService) GetSession(ctx context.Context, userID, sessionID string) (*SessionDetail, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	info, err := s.repo.GetCompanyInfo(ctx, sessionID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "load company info", err)
	}
	agreement, err := s.repo.GetAgreement(ctx, sessionID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "load agreement", err)
	}
	order, err := s.repo.GetSalesOrder(ctx, sessionID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "load sales order", err)
	}
	return &SessionDetail{Session: session, CompanyInfo: info, Agreement: agreement, SalesOrder: order}, nil
}

// CompanyInfoInput is the one-time company details for a session.
type CompanyInfoInput struct {
	CompanyName string
	Email       string
	Phone       string
	Address     string
	Industry    string
}

// SubmitCompanyInfo records the company details for the session. Company info
// is immutable after creation; resubmission fails.
func (s *CheckoutService) SubmitCompanyInfo(ctx context.Context, userID, sessionID string, in CompanyInfoInput) (*domain.CompanyInfo, error) {
	if in.CompanyName == "" || in.Email == "" {
		return nil, fault.New(fault.KindPreconditionFailed, "company name and email required")
	}
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetCompanyInfo(ctx, sessionID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "load company info", err)
	}
	if existing != nil {
		return nil, fault.New(fault.KindPreconditionFailed, "company info already submitted")
	}
	info := &domain.CompanyInfo{
		ID:                uuid.New().String(),
		CheckoutSessionID: sessionID,
		CompanyName:       in.CompanyName,
		Email:             in.Email,
		Phone:             in.Phone,
		Address:           in.Address,
		Industry:          in.Industry,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.repo.CreateCompanyInfo(ctx, info); err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "persist company info", err)
	}
	return info, nil
}

// AttachAgreement ties an e-signature envelope to the session. One agreement
// per session; its status is then driven by provider webhooks.
func (s *CheckoutService) AttachAgreement(ctx context.Context, userID, sessionID, envelopeID string) (*domain.Agreement, error) {
	if envelopeID == "" {
		return nil, fault.New(fault.KindPreconditionFailed, "envelope id required")
	}
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetAgreement(ctx, sessionID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "load agreement", err)
	}
	if existing != nil {
		return nil, fault.New(fault.KindPreconditionFailed, "agreement already attached")
	}
	now := time.Now().UTC()
	a := &domain.Agreement{
		ID:                uuid.New().String(),
		CheckoutSessionID: sessionID,
		EnvelopeID:        envelopeID,
		Status:            domain.AgreementPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.CreateAgreement(ctx, a); err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "persist agreement", err)
	}
	return a, nil
}

// SetOrderAmount records the locally computed order amount for the session.
// The amount must be set before sales-order creation; there is no zero default.
func (s *CheckoutService) SetOrderAmount(ctx context.Context, userID, sessionID string, amountCents int64, currency string) (*domain.SalesOrder, error) {
	if amountCents <= 0 {
		return nil, fault.New(fault.KindPreconditionFailed, "order amount must be positive")
	}
	if currency == "" {
		return nil, fault.New(fault.KindPreconditionFailed, "currency required")
	}
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetSalesOrder(ctx, sessionID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "load sales order", err)
	}
	now := time.Now().UTC()
	order := &domain.SalesOrder{
		ID:                uuid.New().String(),
		CheckoutSessionID: sessionID,
		AmountCents:       amountCents,
		Currency:          currency,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if existing != nil {
		if existing.RemoteID != "" {
			return nil, fault.New(fault.KindPreconditionFailed, "sales order already synced")
		}
		order.ID = existing.ID
		order.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.UpsertSalesOrder(ctx, order); err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "persist sales order", err)
	}
	return order, nil
}

// ContactSyncResult is the outcome of CreateOrUpdateContact.
type ContactSyncResult struct {
	RemoteContactID string
	WasUpdate       bool
}

// CreateOrUpdateContact advances the session to contact_created. Preconditions
// (company info present; completed agreement when required) are checked via
// the gate evaluator. The remote sync runs before the local status write, so a
// partial failure leaves the session retryable in its prior status.
func (s *CheckoutService) CreateOrUpdateContact(ctx context.Context, userID, sessionID string, requireAgreementSigned bool) (*ContactSyncResult, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	info, err := s.repo.GetCompanyInfo(ctx, sessionID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "load company info", err)
	}
	agreement, err := s.repo.GetAgreement(ctx, sessionID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "load agreement", err)
	}

	in := engine.GateInput{
		StatusRank:             session.Status.Rank(),
		HasCompanyInfo:         info != nil,
		RequireAgreementSigned: requireAgreementSigned,
	}
	if agreement != nil {
		in.AgreementStatus = string(agreement.Status)
	}
	result, err := s.gates.Evaluate(ctx, session.Module, in)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "evaluate contact gate", err)
	}
	if !result.AllowContact {
		if info == nil {
			return nil, fault.New(fault.KindPreconditionFailed, "company info required before contact creation")
		}
		return nil, fault.New(fault.KindPreconditionFailed, "agreement must be completed before contact creation")
	}

	remoteID, wasUpdate, err := s.linker.LinkContact(ctx, userID, crm.ContactInput{
		CompanyName: info.CompanyName,
		Email:       info.Email,
		Phone:       info.Phone,
		Address:     info.Address,
		Industry:    info.Industry,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.AdvanceStatus(ctx, sessionID, domain.StatusContactCreated); err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "advance session status", err)
	}
	return &ContactSyncResult{RemoteContactID: remoteID, WasUpdate: wasUpdate}, nil
}

// SalesOrderResult is the outcome of CreateSalesOrder.
type SalesOrderResult struct {
	RemoteSalesOrderID string
	RemoteContactID    string
}

// CreateSalesOrder advances the session to sales_order_created. Requires the
// configured payment/contact gates, an existing identity link, and a local
// order amount. The remote create runs before the local writes.
func (s *CheckoutService) CreateSalesOrder(ctx context.Context, userID, sessionID string, requirePaymentConfirmed, requireContactCreated bool) (*SalesOrderResult, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	in := engine.GateInput{
		StatusRank:              session.Status.Rank(),
		RequirePaymentConfirmed: requirePaymentConfirmed,
		RequireContactCreated:   requireContactCreated,
	}
	result, err := s.gates.Evaluate(ctx, session.Module, in)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "evaluate sales-order gate", err)
	}
	if !result.AllowSalesOrder {
		if requirePaymentConfirmed && !session.Status.AtLeast(domain.StatusPaymentCompleted) {
			return nil, fault.New(fault.KindPreconditionFailed, "payment must be confirmed before sales order creation")
		}
		return nil, fault.New(fault.KindPreconditionFailed, "contact must be created before sales order creation")
	}

	remoteContactID, err := s.linker.RemoteIDFor(ctx, userID)
	if err != nil {
		if fault.IsKind(err, fault.KindNotFound) {
			return nil, fault.New(fault.KindPreconditionFailed, "contact must be linked before sales order creation")
		}
		return nil, err
	}

	order, err := s.repo.GetSalesOrder(ctx, sessionID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "load sales order", err)
	}
	if order == nil {
		return nil, fault.New(fault.KindPreconditionFailed, "order amount required before sales order creation")
	}

	remote, err := s.orders.CreateSalesOrder(ctx, crm.SalesOrderInput{
		ContactID:   remoteContactID,
		Subject:     session.Module,
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
	})
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "create remote sales order", err)
	}

	order.RemoteID = remote.ID
	order.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpsertSalesOrder(ctx, order); err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "persist sales order", err)
	}
	if _, err := s.repo.AdvanceStatus(ctx, sessionID, domain.StatusSalesOrderCreated); err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "advance session status", err)
	}
	return &SalesOrderResult{RemoteSalesOrderID: remote.ID, RemoteContactID: remoteContactID}, nil
}

// MarkPaymentCompleted applies a settled-payment notification. The advance-only
// guard makes duplicate deliveries safe no-ops; returns whether a transition
// was applied.
func (s *CheckoutService) MarkPaymentCompleted(ctx context.Context, sessionID string) (bool, error) {
	return s.repo.AdvanceStatus(ctx, sessionID, domain.StatusPaymentCompleted)
}

// ApplyAgreementStatus applies an e-signature notification keyed by envelope
// id. Unknown envelopes, repeats and stale out-of-order statuses are safe
// no-ops under the repository's rank guard; returns whether a row was updated.
func (s *CheckoutService) ApplyAgreementStatus(ctx context.Context, envelopeID string, status domain.AgreementStatus) (bool, error) {
	if !status.Valid() {
		return false, fault.Newf(fault.KindPreconditionFailed, "unknown agreement status %q", status)
	}
	return s.repo.UpdateAgreementStatusByEnvelope(ctx, envelopeID, status)
}

func (s *CheckoutService) ownedSession(ctx context.Context, userID, sessionID string) (*domain.CheckoutSession, error) {
	session, err := s.repo.GetSessionForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "load checkout session", err)
	}
	if session == nil {
		return nil, fault.New(fault.KindNotFound, "checkout session not found")
	}
	return session, nil
}
