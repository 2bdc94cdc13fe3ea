package repository

import (
	"context"

	"order-crm-sync/internal/webhook/domain"
)

// Repository is the persistence contract for webhook deliveries.
type Repository interface {
	// Record inserts the delivery. Returns false when an event with the same
	// (provider, provider_event_id) was already recorded.
	Record(ctx context.Context, event *domain.WebhookEvent) (bool, error)
	Get(ctx context.Context, provider, providerEventID string) (*domain.WebhookEvent, error)
}
