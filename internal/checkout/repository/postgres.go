package repository

import (
	"context"
	"database/sql"
	"errors"

	"order-crm-sync/internal/checkout/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a checkout repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateSession persists the session. The session must have ID set; it is not assigned by this method.
func (r *PostgresRepository) CreateSession(ctx context.Context, s *domain.CheckoutSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkout_sessions (id, user_id, module, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, s.Module, string(s.Status), s.CreatedAt, s.UpdatedAt)
	return err
}

// GetSession returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	return r.scanSession(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, module, status, created_at, updated_at
		FROM checkout_sessions WHERE id = $1`, id))
}

// GetSessionForUser returns the session only when it belongs to userID, or nil.
func (r *PostgresRepository) GetSessionForUser(ctx context.Context, id, userID string) (*domain.CheckoutSession, error) {
	return r.scanSession(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, module, status, created_at, updated_at
		FROM checkout_sessions WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *PostgresRepository) scanSession(row *sql.Row) (*domain.CheckoutSession, error) {
	var s domain.CheckoutSession
	var status string
	err := row.Scan(&s.ID, &s.UserID, &s.Module, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Status = domain.Status(status)
	return &s, nil
}

// AdvanceStatus moves the session to target only when the current status ranks
// below it. The rank comparison runs inside the UPDATE so concurrent advances
// and duplicate webhook deliveries collapse into one effective transition.
func (r *PostgresRepository) AdvanceStatus(ctx context.Context, sessionID string, target domain.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE checkout_sessions
		SET status = $2, updated_at = now()
		WHERE id = $1
		  AND CASE status
			WHEN 'created' THEN 0
			WHEN 'payment_completed' THEN 1
			WHEN 'contact_created' THEN 2
			WHEN 'sales_order_created' THEN 3
		  END < $3`,
		sessionID, string(target), target.Rank())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateCompanyInfo persists the company info supplied once per session.
func (r *PostgresRepository) CreateCompanyInfo(ctx context.Context, info *domain.CompanyInfo) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO company_info (id, checkout_session_id, company_name, email, phone, address, industry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		info.ID, info.CheckoutSessionID, info.CompanyName, info.Email, info.Phone, info.Address, info.Industry, info.CreatedAt)
	return err
}

// GetCompanyInfo returns the session's company info, or nil if not found.
func (r *PostgresRepository) GetCompanyInfo(ctx context.Context, sessionID string) (*domain.CompanyInfo, error) {
	var info domain.CompanyInfo
	err := r.db.QueryRowContext(ctx, `
		SELECT id, checkout_session_id, company_name, email, phone, address, industry, created_at
		FROM company_info WHERE checkout_session_id = $1`, sessionID).
		Scan(&info.ID, &info.CheckoutSessionID, &info.CompanyName, &info.Email, &info.Phone, &info.Address, &info.Industry, &info.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &info, nil
}

// CreateAgreement persists the agreement tied to a session.
func (r *PostgresRepository) CreateAgreement(ctx context.Context, a *domain.Agreement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agreements (id, checkout_session_id, envelope_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.CheckoutSessionID, a.EnvelopeID, string(a.Status), a.CreatedAt, a.UpdatedAt)
	return err
}

// GetAgreement returns the session's agreement, or nil if not found.
func (r *PostgresRepository) GetAgreement(ctx context.Context, sessionID string) (*domain.Agreement, error) {
	var a domain.Agreement
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, checkout_session_id, envelope_id, status, created_at, updated_at
		FROM agreements WHERE checkout_session_id = $1`, sessionID).
		Scan(&a.ID, &a.CheckoutSessionID, &a.EnvelopeID, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Status = domain.AgreementStatus(status)
	return &a, nil
}

// UpdateAgreementStatusByEnvelope sets the agreement status for the given
// envelope id, but only when the incoming status ranks above the current one.
// Deliveries arrive unordered; the rank guard keeps a stale status from
// regressing a later one, mirroring AdvanceStatus.
func (r *PostgresRepository) UpdateAgreementStatusByEnvelope(ctx context.Context, envelopeID string, status domain.AgreementStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE agreements
		SET status = $2, updated_at = now()
		WHERE envelope_id = $1
		  AND CASE status
			WHEN 'pending' THEN 0
			WHEN 'sent' THEN 1
			WHEN 'partially_signed' THEN 2
			WHEN 'completed' THEN 3
			WHEN 'declined' THEN 3
			WHEN 'voided' THEN 3
		  END < $3`,
		envelopeID, string(status), status.Rank())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetSalesOrder returns the session's sales order, or nil if not found.
func (r *PostgresRepository) GetSalesOrder(ctx context.Context, sessionID string) (*domain.SalesOrder, error) {
	var o domain.SalesOrder
	err := r.db.QueryRowContext(ctx, `
		SELECT id, checkout_session_id, amount_cents, currency, remote_id, created_at, updated_at
		FROM sales_orders WHERE checkout_session_id = $1`, sessionID).
		Scan(&o.ID, &o.CheckoutSessionID, &o.AmountCents, &o.Currency, &o.RemoteID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// UpsertSalesOrder creates or updates the single sales-order row for the
// order's session. The unique constraint on checkout_session_id makes this the
// idempotency anchor for sales-order sync.
func (r *PostgresRepository) UpsertSalesOrder(ctx context.Context, o *domain.SalesOrder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sales_orders (id, checkout_session_id, amount_cents, currency, remote_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (checkout_session_id) DO UPDATE SET
			amount_cents = EXCLUDED.amount_cents,
			currency = EXCLUDED.currency,
			remote_id = EXCLUDED.remote_id,
			updated_at = EXCLUDED.updated_at`,
		o.ID, o.CheckoutSessionID, o.AmountCents, o.Currency, o.RemoteID, o.CreatedAt, o.UpdatedAt)
	return err
}
