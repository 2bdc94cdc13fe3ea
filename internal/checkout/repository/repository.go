package repository

import (
	"context"

	"order-crm-sync/internal/checkout/domain"
)

// Repository is the persistence contract for checkout sessions and their
// owned records. Implementations must make AdvanceStatus an atomic
// compare-and-set so concurrent advances and duplicate webhook deliveries
// cannot regress or skip a status.
type Repository interface {
	CreateSession(ctx context.Context, s *domain.CheckoutSession) error
	// GetSession returns the session by id, or nil if absent.
	GetSession(ctx context.Context, id string) (*domain.CheckoutSession, error)
	// GetSessionForUser returns the session only when owned by userID, or nil.
	GetSessionForUser(ctx context.Context, id, userID string) (*domain.CheckoutSession, error)

	// AdvanceStatus moves the session to target only when its current rank is
	// below target's rank. Returns true when a row was updated; false means
	// the session is already at or past target (a safe no-op).
	AdvanceStatus(ctx context.Context, sessionID string, target domain.Status) (bool, error)

	CreateCompanyInfo(ctx context.Context, info *domain.CompanyInfo) error
	// GetCompanyInfo returns the session's company info, or nil if absent.
	GetCompanyInfo(ctx context.Context, sessionID string) (*domain.CompanyInfo, error)

	CreateAgreement(ctx context.Context, a *domain.Agreement) error
	// GetAgreement returns the session's agreement, or nil if absent.
	GetAgreement(ctx context.Context, sessionID string) (*domain.Agreement, error)
	// UpdateAgreementStatusByEnvelope sets the agreement status for the given
	// e-signature envelope id, advance-only by status rank. Returns false when
	// no agreement matches or the incoming status does not outrank the current
	// one.
	UpdateAgreementStatusByEnvelope(ctx context.Context, envelopeID string, status domain.AgreementStatus) (bool, error)

	// GetSalesOrder returns the session's sales order, or nil if absent.
	GetSalesOrder(ctx context.Context, sessionID string) (*domain.SalesOrder, error)
	// UpsertSalesOrder creates or updates the single sales-order row for the
	// order's session (unique on session id, never duplicated).
	UpsertSalesOrder(ctx context.Context, o *domain.SalesOrder) error
}
