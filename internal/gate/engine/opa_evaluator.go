package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"order-crm-sync/internal/gate/repository"
)

const gatePolicyPackage = "crmsync.checkout_gate"

// DefaultRegoPolicy encodes the built-in transition gates: contact creation
// needs company info and (when required) a completed agreement; sales-order
// creation needs payment confirmation and (when required) a created contact.
const DefaultRegoPolicy = `package crmsync.checkout_gate

default allow_contact = false
default allow_sales_order = false

company_ok if {
	input.session.has_company_info
}

agreement_ok if {
	not input.flags.require_agreement_signed
}

agreement_ok if {
	input.session.agreement_status == "completed"
}

payment_ok if {
	not input.flags.require_payment_confirmed
}

payment_ok if {
	input.session.status_rank >= 1
}

contact_ok if {
	not input.flags.require_contact_created
}

contact_ok if {
	input.session.status_rank >= 2
}

allow_contact if {
	company_ok
	agreement_ok
}

allow_sales_order if {
	payment_ok
	contact_ok
}
`

// OPAEvaluator evaluates checkout transition gates using OPA Rego, with
// per-module policy overrides loaded from the store.
type OPAEvaluator struct {
	policyRepo repository.Repository
}

// NewOPAEvaluator returns an OPA-based gate evaluator. policyRepo may be nil;
// then only the built-in default policy is used.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo}
}

// HealthCheck verifies that the in-process Rego engine can compile and
// evaluate the default policy. Does not touch the database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := ast.CompileModules(map[string]string{"policy_0.rego": DefaultRegoPolicy})
	if err != nil {
		return fmt.Errorf("compile default gate policy: %w", err)
	}
	rs, err := rego.New(
		rego.Query("data."+gatePolicyPackage+".allow_contact"),
		rego.Compiler(compiler),
		rego.Input(buildInput(GateInput{})),
	).Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default gate policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("gate policy query returned no result")
	}
	return nil
}

// Evaluate runs the module's enabled policies (or the built-in default) over
// the session input. On evaluation failure it falls back to the built-in
// logic computed directly, so a broken stored policy cannot wedge checkouts.
func (e *OPAEvaluator) Evaluate(ctx context.Context, module string, in GateInput) (GateResult, error) {
	var policies []string
	if e.policyRepo != nil {
		stored, err := e.policyRepo.GetEnabledPoliciesByModule(ctx, module)
		if err != nil {
			log.Printf("gate: failed to load policies for module %s: %v", module, err)
		} else {
			for _, p := range stored {
				if p.Enabled && p.Rules != "" {
					policies = append(policies, p.Rules)
				}
			}
		}
	}
	if len(policies) == 0 {
		policies = []string{DefaultRegoPolicy}
	}

	result, err := e.evaluatePolicies(ctx, policies, buildInput(in))
	if err != nil {
		log.Printf("gate: evaluation failed: %v, using built-in gates", err)
		return builtinResult(in), nil
	}
	return result, nil
}

func buildInput(in GateInput) map[string]interface{} {
	return map[string]interface{}{
		"session": map[string]interface{}{
			"status_rank":      in.StatusRank,
			"has_company_info": in.HasCompanyInfo,
			"agreement_status": in.AgreementStatus,
		},
		"flags": map[string]interface{}{
			"require_agreement_signed":  in.RequireAgreementSigned,
			"require_payment_confirmed": in.RequirePaymentConfirmed,
			"require_contact_created":   in.RequireContactCreated,
		},
	}
}

func (e *OPAEvaluator) evaluatePolicies(ctx context.Context, policies []string, input map[string]interface{}) (GateResult, error) {
	modules := make(map[string]string)
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return GateResult{}, fmt.Errorf("compile gate policies: %w", err)
	}

	out := GateResult{}
	queries := []struct {
		query string
		dest  *bool
	}{
		{"data." + gatePolicyPackage + ".allow_contact", &out.AllowContact},
		{"data." + gatePolicyPackage + ".allow_sales_order", &out.AllowSalesOrder},
	}
	for _, q := range queries {
		rs, err := rego.New(
			rego.Query(q.query),
			rego.Compiler(compiler),
			rego.Input(input),
		).Eval(ctx)
		if err != nil {
			return GateResult{}, fmt.Errorf("eval %s: %w", q.query, err)
		}
		if len(rs) == 0 || len(rs[0].Expressions) == 0 {
			return GateResult{}, fmt.Errorf("%s returned no result", q.query)
		}
		v, ok := rs[0].Expressions[0].Value.(bool)
		if !ok {
			return GateResult{}, fmt.Errorf("%s returned non-boolean", q.query)
		}
		*q.dest = v
	}
	return out, nil
}

// builtinResult mirrors DefaultRegoPolicy in Go for the fallback path.
func builtinResult(in GateInput) GateResult {
	agreementOK := !in.RequireAgreementSigned || in.AgreementStatus == "completed"
	paymentOK := !in.RequirePaymentConfirmed || in.StatusRank >= 1
	contactOK := !in.RequireContactCreated || in.StatusRank >= 2
	return GateResult{
		AllowContact:    in.HasCompanyInfo && agreementOK,
		AllowSalesOrder: paymentOK && contactOK,
	}
}
