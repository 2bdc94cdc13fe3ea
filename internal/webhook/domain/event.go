// Package domain defines the persisted record of inbound provider webhooks.
package domain

import "time"

// Providers that deliver webhooks to this service.
const (
	ProviderBilling    = "billing"
	ProviderEsignature = "esignature"
)

// WebhookEvent is one delivery from an external provider, stored for
// idempotency and audit. (provider, provider_event_id) is unique.
type WebhookEvent struct {
	ID              string
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         string
	ReceivedAt      time.Time
}
