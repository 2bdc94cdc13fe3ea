package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"order-crm-sync/internal/signuplink/domain"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a signup-link repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the link. A collision on the unique code column is reported
// as ErrCodeTaken so the issuer can regenerate.
func (r *PostgresRepository) Create(ctx context.Context, link *domain.SignupLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signup_links (id, remote_id, code, expires_at, usage_limit, usage_count, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		link.ID, link.RemoteID, link.Code, link.ExpiresAt, link.UsageLimit, link.UsageCount, link.Active, link.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

// Consume performs the expiry check, limit check, and increment as one UPDATE
// so two concurrent validations cannot both succeed against the last
// remaining use. Refusals are classified by a follow-up read.
func (r *PostgresRepository) Consume(ctx context.Context, remoteID, code string, now time.Time) (*domain.SignupLink, ConsumeOutcome, error) {
	link, err := r.scanLink(r.db.QueryRowContext(ctx, `
		UPDATE signup_links
		SET usage_count = usage_count + 1
		WHERE remote_id = $1 AND code = $2
		  AND active
		  AND expires_at > $3
		  AND usage_count < usage_limit
		RETURNING id, remote_id, code, expires_at, usage_limit, usage_count, active, created_at`,
		remoteID, code, now))
	if err != nil {
		return nil, ConsumeNotFound, err
	}
	if link != nil {
		return link, ConsumeOK, nil
	}

	link, err = r.GetByRemoteAndCode(ctx, remoteID, code)
	if err != nil {
		return nil, ConsumeNotFound, err
	}
	if link == nil {
		return nil, ConsumeNotFound, nil
	}
	if !link.Active || link.Expired(now) {
		if link.Active {
			if _, derr := r.db.ExecContext(ctx, `
				UPDATE signup_links SET active = FALSE WHERE id = $1`, link.ID); derr != nil {
				return nil, ConsumeExpired, derr
			}
			link.Active = false
		}
		return link, ConsumeExpired, nil
	}
	return link, ConsumeLimitExceeded, nil
}

// GetByRemoteAndCode returns the link for exact (remoteID, code), or nil if not found.
func (r *PostgresRepository) GetByRemoteAndCode(ctx context.Context, remoteID, code string) (*domain.SignupLink, error) {
	return r.scanLink(r.db.QueryRowContext(ctx, `
		SELECT id, remote_id, code, expires_at, usage_limit, usage_count, active, created_at
		FROM signup_links WHERE remote_id = $1 AND code = $2`, remoteID, code))
}

// ListByRemote returns all links issued for remoteID, newest first.
func (r *PostgresRepository) ListByRemote(ctx context.Context, remoteID string) ([]*domain.SignupLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, remote_id, code, expires_at, usage_limit, usage_count, active, created_at
		FROM signup_links WHERE remote_id = $1 ORDER BY created_at DESC`, remoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SignupLink
	for rows.Next() {
		var l domain.SignupLink
		if err := rows.Scan(&l.ID, &l.RemoteID, &l.Code, &l.ExpiresAt, &l.UsageLimit, &l.UsageCount, &l.Active, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) scanLink(row *sql.Row) (*domain.SignupLink, error) {
	var l domain.SignupLink
	err := row.Scan(&l.ID, &l.RemoteID, &l.Code, &l.ExpiresAt, &l.UsageLimit, &l.UsageCount, &l.Active, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
