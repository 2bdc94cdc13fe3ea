package repository

import (
	"context"

	"order-crm-sync/internal/identitylink/domain"
)

// Repository is the persistence contract for identity links. Upsert must be
// atomic on user id so concurrent syncs for the same user cannot create two
// rows (the unique constraint is the idempotency anchor).
type Repository interface {
	// GetByUser returns the link for userID, or nil if absent.
	GetByUser(ctx context.Context, userID string) (*domain.IdentityLink, error)
	// Upsert creates the link or updates its remote contact id in place.
	Upsert(ctx context.Context, link *domain.IdentityLink) error
}
