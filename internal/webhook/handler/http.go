// Package handler ingests billing and e-signature provider webhooks. Deliveries
// are recorded for idempotency and applied to local state only; the CRM is
// never called from this path.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	checkoutdomain "order-crm-sync/internal/checkout/domain"
	"order-crm-sync/internal/server/httpx"
	"order-crm-sync/internal/telemetry"
	telemetrydomain "order-crm-sync/internal/telemetry/domain"
	"order-crm-sync/internal/webhook/domain"
	"order-crm-sync/internal/webhook/repository"
)

// CheckoutUpdater is the checkout surface driven by provider webhooks.
type CheckoutUpdater interface {
	MarkPaymentCompleted(ctx context.Context, sessionID string) (bool, error)
	ApplyAgreementStatus(ctx context.Context, envelopeID string, status checkoutdomain.AgreementStatus) (bool, error)
}

type Handler struct {
	checkout CheckoutUpdater
	events   repository.Repository
	emitter  telemetry.EventEmitter
}

func NewHandler(checkout CheckoutUpdater, events repository.Repository, emitter telemetry.EventEmitter) *Handler {
	return &Handler{checkout: checkout, events: events, emitter: emitter}
}

type billingRequest struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}

type esignatureRequest struct {
	EventID    string `json:"eventId"`
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
}

type webhookResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
	Applied   bool `json:"applied,omitempty"`
}

// Billing handles POST /webhooks/billing. A settled payment advances the
// session to payment_completed. Duplicate deliveries, unknown sessions and
// unrecognized statuses are acknowledged with 200 so the provider stops
// retrying; only unexpected failures return 500.
func (h *Handler) Billing(w http.ResponseWriter, r *http.Request) {
	var req billingRequest
	body, err := decodeRaw(r, &req)
	if err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	if req.EventID == "" || req.SessionID == "" {
		httpx.BadRequest(w, "eventId and sessionId required")
		return
	}

	fresh, err := h.record(r.Context(), domain.ProviderBilling, req.EventID, req.EventType, body)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	// Apply on every delivery, duplicate or not. The advance-only guard makes
	// re-application a no-op, and a retry after a failed first apply must not
	// be swallowed by dedup.
	applied := false
	if req.Status == "settled" {
		applied, err = h.checkout.MarkPaymentCompleted(r.Context(), req.SessionID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
	} else {
		log.Printf("webhook: billing event %s with status %q ignored", req.EventID, req.Status)
	}

	event := telemetrydomain.New(telemetrydomain.EventPaymentIngested, domain.ProviderBilling)
	event.SessionID = req.SessionID
	event.Detail = req.Status
	telemetry.EmitAsync(h.emitter, r.Context(), event)

	httpx.WriteJSON(w, http.StatusOK, webhookResponse{Received: true, Duplicate: !fresh, Applied: applied})
}

// Esignature handles POST /webhooks/esignature. The envelope status is applied
// to the attached agreement by envelope id. Unknown envelopes are acknowledged
// with 200; a malformed status is a 400 back to the provider.
func (h *Handler) Esignature(w http.ResponseWriter, r *http.Request) {
	var req esignatureRequest
	body, err := decodeRaw(r, &req)
	if err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	if req.EventID == "" || req.EnvelopeID == "" {
		httpx.BadRequest(w, "eventId and envelopeId required")
		return
	}
	status := checkoutdomain.AgreementStatus(req.Status)
	if !status.Valid() {
		httpx.BadRequest(w, "unknown envelope status")
		return
	}

	fresh, err := h.record(r.Context(), domain.ProviderEsignature, req.EventID, req.Status, body)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	// Applied regardless of the duplicate flag, same as Billing: the status
	// rank guard already collapses repeats, and a retry of a delivery whose
	// first apply failed must still go through.
	applied, err := h.checkout.ApplyAgreementStatus(r.Context(), req.EnvelopeID, status)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if !applied {
		log.Printf("webhook: esignature envelope %s status %q not applied (unknown envelope or stale status)", req.EnvelopeID, req.Status)
	}

	event := telemetrydomain.New(telemetrydomain.EventEsignIngested, domain.ProviderEsignature)
	event.Detail = req.Status
	telemetry.EmitAsync(h.emitter, r.Context(), event)

	httpx.WriteJSON(w, http.StatusOK, webhookResponse{Received: true, Duplicate: !fresh, Applied: applied})
}

func (h *Handler) record(ctx context.Context, provider, eventID, eventType string, payload []byte) (bool, error) {
	return h.events.Record(ctx, &domain.WebhookEvent{
		ID:              uuid.NewString(),
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       eventType,
		Payload:         string(payload),
		ReceivedAt:      time.Now().UTC(),
	})
}

const maxWebhookBody = 1 << 20

// decodeRaw decodes the body into v and also returns the raw bytes for the
// stored delivery record.
func decodeRaw(r *http.Request, v interface{}) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return nil, errors.New("unreadable request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	return body, nil
}
