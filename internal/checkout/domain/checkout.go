// Package domain defines the checkout session aggregate and its status machine.
package domain

import "time"

// Status is the checkout session lifecycle status. It only advances through
// created -> payment_completed -> contact_created -> sales_order_created and
// never regresses.
type Status string

const (
	StatusCreated           Status = "created"
	StatusPaymentCompleted  Status = "payment_completed"
	StatusContactCreated    Status = "contact_created"
	StatusSalesOrderCreated Status = "sales_order_created"
)

// statusRank orders statuses for advance-only transitions.
var statusRank = map[Status]int{
	StatusCreated:           0,
	StatusPaymentCompleted:  1,
	StatusContactCreated:    2,
	StatusSalesOrderCreated: 3,
}

// Rank returns the ordinal position of s in the transition chain, or -1 for
// unknown statuses.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is at or past other in the transition chain.
func (s Status) AtLeast(other Status) bool {
	return s.Rank() >= other.Rank() && s.Rank() >= 0
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s.Rank() >= 0 }

// AgreementStatus is the e-signature agreement status, tracked orthogonally to
// the main status chain and checked as a precondition.
type AgreementStatus string

const (
	AgreementPending         AgreementStatus = "pending"
	AgreementSent            AgreementStatus = "sent"
	AgreementPartiallySigned AgreementStatus = "partially_signed"
	AgreementCompleted       AgreementStatus = "completed"
	AgreementDeclined        AgreementStatus = "declined"
	AgreementVoided          AgreementStatus = "voided"
)

// agreementRank orders agreement statuses for advance-only updates. The
// delivery source is unordered, so a stale status must never overwrite a later
// one. completed, declined and voided share the top rank: they are terminal
// and block each other.
var agreementRank = map[AgreementStatus]int{
	AgreementPending:         0,
	AgreementSent:            1,
	AgreementPartiallySigned: 2,
	AgreementCompleted:       3,
	AgreementDeclined:        3,
	AgreementVoided:          3,
}

// Rank returns the ordinal position of s in the signing progression, or -1 for
// unknown statuses.
func (s AgreementStatus) Rank() int {
	if r, ok := agreementRank[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is a known agreement status.
func (s AgreementStatus) Valid() bool { return s.Rank() >= 0 }

// CheckoutSession is one purchase attempt. Mutated only by the state machine;
// never deleted (kept as audit trail).
type CheckoutSession struct {
	ID        string
	UserID    string
	Module    string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CompanyInfo holds the company/contact details supplied once per session.
// Immutable after creation; required input to remote contact creation.
type CompanyInfo struct {
	ID                string
	CheckoutSessionID string
	CompanyName       string
	Email             string
	Phone             string
	Address           string
	Industry          string
	CreatedAt         time.Time
}

// Agreement is the e-signature contract tied to a session. Status is mutated
// exclusively by webhook ingestion.
type Agreement struct {
	ID                string
	CheckoutSessionID string
	EnvelopeID        string
	Status            AgreementStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SalesOrder is the locally computed order for a session, unique per session.
// RemoteID is empty until the remote sales order is created.
type SalesOrder struct {
	ID                string
	CheckoutSessionID string
	AmountCents       int64
	Currency          string
	RemoteID          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
