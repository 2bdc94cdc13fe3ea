// Package domain defines stored checkout-gate policies.
package domain

import "time"

// GatePolicy is a Rego policy gating checkout-session transitions for one
// product module. Disabled policies are ignored by the evaluator.
type GatePolicy struct {
	ID        string
	Module    string
	Name      string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
