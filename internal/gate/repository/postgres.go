package repository

import (
	"context"
	"database/sql"

	"order-crm-sync/internal/gate/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a gate-policy repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetEnabledPoliciesByModule returns enabled policies for the product module.
func (r *PostgresRepository) GetEnabledPoliciesByModule(ctx context.Context, module string) ([]*domain.GatePolicy, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, module, name, rules, enabled, created_at, updated_at
		FROM gate_policies WHERE module = $1 AND enabled ORDER BY created_at`, module)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.GatePolicy
	for rows.Next() {
		var p domain.GatePolicy
		if err := rows.Scan(&p.ID, &p.Module, &p.Name, &p.Rules, &p.Enabled, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Create persists the policy.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.GatePolicy) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gate_policies (id, module, name, rules, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Module, p.Name, p.Rules, p.Enabled, p.CreatedAt, p.UpdatedAt)
	return err
}
