package repository

import (
	"context"

	"order-crm-sync/internal/gate/domain"
)

// Repository is the persistence contract for gate policies.
type Repository interface {
	// GetEnabledPoliciesByModule returns enabled policies for the product module.
	GetEnabledPoliciesByModule(ctx context.Context, module string) ([]*domain.GatePolicy, error)
	// Create persists a policy.
	Create(ctx context.Context, p *domain.GatePolicy) error
}
