package repository

import (
	"context"
	"database/sql"
	"errors"

	"order-crm-sync/internal/identitylink/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity-link repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUser returns the link for userID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (*domain.IdentityLink, error) {
	var l domain.IdentityLink
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, remote_contact_id, created_at, updated_at
		FROM identity_links WHERE user_id = $1`, userID).
		Scan(&l.ID, &l.UserID, &l.RemoteContactID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// Upsert creates the link or updates its remote contact id. The unique
// constraint on user_id guarantees a user maps to at most one remote contact
// even under concurrent syncs.
func (r *PostgresRepository) Upsert(ctx context.Context, link *domain.IdentityLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identity_links (id, user_id, remote_contact_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			remote_contact_id = EXCLUDED.remote_contact_id,
			updated_at = EXCLUDED.updated_at`,
		link.ID, link.UserID, link.RemoteContactID, link.CreatedAt, link.UpdatedAt)
	return err
}
