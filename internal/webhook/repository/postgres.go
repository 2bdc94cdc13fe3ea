package repository

import (
	"context"
	"database/sql"

	"order-crm-sync/internal/webhook/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a webhook repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record inserts the delivery, relying on the (provider, provider_event_id)
// unique constraint to detect duplicates. Returns false for duplicates.
func (r *PostgresRepository) Record(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_events (id, provider, provider_event_id, event_type, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		event.ID, event.Provider, event.ProviderEventID, event.EventType, event.Payload, event.ReceivedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns the delivery, or nil if it was never recorded.
func (r *PostgresRepository) Get(ctx context.Context, provider, providerEventID string) (*domain.WebhookEvent, error) {
	var e domain.WebhookEvent
	err := r.db.QueryRowContext(ctx, `
		SELECT id, provider, provider_event_id, event_type, payload, received_at
		FROM webhook_events WHERE provider = $1 AND provider_event_id = $2`,
		provider, providerEventID).
		Scan(&e.ID, &e.Provider, &e.ProviderEventID, &e.EventType, &e.Payload, &e.ReceivedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
