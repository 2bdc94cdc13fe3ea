// Package server wires handlers, middleware, and instrumentation into the
// HTTP router.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	checkouthandler "order-crm-sync/internal/checkout/handler"
	healthhandler "order-crm-sync/internal/health/handler"
	profilehandler "order-crm-sync/internal/profile/handler"
	"order-crm-sync/internal/security"
	"order-crm-sync/internal/server/middleware"
	signuplinkhandler "order-crm-sync/internal/signuplink/handler"
	webhookhandler "order-crm-sync/internal/webhook/handler"
)

// Handlers groups the feature handlers mounted on the router.
type Handlers struct {
	Checkout   *checkouthandler.Handler
	SignupLink *signuplinkhandler.Handler
	Profile    *profilehandler.Handler
	Webhook    *webhookhandler.Handler
	Health     *healthhandler.Handler
}

// publicPaths do not require a bearer token: inbound provider webhooks, the
// health probe, and signup-link validation (the link code is the credential).
var publicPaths = map[string]bool{
	"/health":                true,
	"/webhooks/billing":      true,
	"/webhooks/esignature":   true,
	"/signup-links/validate": true,
}

// NewRouter builds the HTTP handler: otelhttp instrumentation around the mux
// router, with auth and audit middleware applied to every route.
func NewRouter(h Handlers, tokens *security.TokenProvider, audit func(http.Handler) http.Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health.Get).Methods(http.MethodGet)

	r.HandleFunc("/checkout/sessions", h.Checkout.CreateSession).Methods(http.MethodPost)
	r.HandleFunc("/checkout/sessions/{id}", h.Checkout.GetSession).Methods(http.MethodGet)
	r.HandleFunc("/checkout/sessions/{id}/company-info", h.Checkout.SubmitCompanyInfo).Methods(http.MethodPost)
	r.HandleFunc("/checkout/sessions/{id}/agreement", h.Checkout.AttachAgreement).Methods(http.MethodPost)
	r.HandleFunc("/checkout/sessions/{id}/order", h.Checkout.SetOrderAmount).Methods(http.MethodPost)
	r.HandleFunc("/checkout/sessions/{id}/contact", h.Checkout.CreateContact).Methods(http.MethodPost)
	r.HandleFunc("/checkout/sessions/{id}/sales-order", h.Checkout.CreateSalesOrder).Methods(http.MethodPost)

	r.HandleFunc("/signup-links", h.SignupLink.Issue).Methods(http.MethodPost)
	r.HandleFunc("/signup-links", h.SignupLink.History).Methods(http.MethodGet)
	r.HandleFunc("/signup-links/validate", h.SignupLink.Validate).Methods(http.MethodPost)

	r.HandleFunc("/crm/profile", h.Profile.Get).Methods(http.MethodGet)

	r.HandleFunc("/webhooks/billing", h.Webhook.Billing).Methods(http.MethodPost)
	r.HandleFunc("/webhooks/esignature", h.Webhook.Esignature).Methods(http.MethodPost)

	var handler http.Handler = r
	if audit != nil {
		handler = audit(handler)
	}
	handler = middleware.Auth(tokens, publicPaths)(handler)
	return otelhttp.NewHandler(handler, "crmsync-http")
}
