// Package domain defines the sync audit event emitted by handlers.
package domain

import "time"

// Event types emitted by the HTTP edge.
const (
	EventSessionCreated   = "checkout.session_created"
	EventContactSynced    = "checkout.contact_synced"
	EventSalesOrderSynced = "checkout.sales_order_synced"
	EventPaymentIngested  = "webhook.payment_ingested"
	EventEsignIngested    = "webhook.esignature_ingested"
	EventSignupIssued     = "signuplink.issued"
	EventSignupValidated  = "signuplink.validated"
)

// SyncEvent is one audit event about a sync operation, serialized as JSON for
// the Kafka pipeline and labeled in Loki by EventType and Source.
type SyncEvent struct {
	EventType string    `json:"eventType"`
	Source    string    `json:"source"`
	UserID    string    `json:"userId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	RemoteID  string    `json:"remoteId,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// New returns an event of the given type stamped with the current time.
func New(eventType, source string) *SyncEvent {
	return &SyncEvent{
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}
