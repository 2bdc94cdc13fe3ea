package repository

import (
	"context"

	"order-crm-sync/internal/audit/domain"
)

// Repository is the persistence contract for audit logs.
type Repository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	// ListByUser returns entries for the user, newest first, up to limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error)
}
