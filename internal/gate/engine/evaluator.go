// Package engine evaluates checkout transition gates against Rego policies.
package engine

import "context"

// GateInput is the evaluation input for one checkout session.
type GateInput struct {
	// StatusRank is the session status position in the transition chain
	// (created=0 .. sales_order_created=3).
	StatusRank int
	// HasCompanyInfo reports whether company info was submitted.
	HasCompanyInfo bool
	// AgreementStatus is the agreement status string, or "" when no agreement exists.
	AgreementStatus string

	// RequireAgreementSigned gates contact creation on a completed agreement.
	RequireAgreementSigned bool
	// RequirePaymentConfirmed gates sales-order creation on payment confirmation.
	RequirePaymentConfirmed bool
	// RequireContactCreated gates sales-order creation on prior contact creation.
	RequireContactCreated bool
}

// GateResult holds the gate decisions for the session.
type GateResult struct {
	AllowContact    bool
	AllowSalesOrder bool
}

// Evaluator decides whether a checkout session may advance.
type Evaluator interface {
	Evaluate(ctx context.Context, module string, in GateInput) (GateResult, error)
	HealthCheck(ctx context.Context) error
}
