// Package domain defines the identity link mapping a local user to its remote
// CRM contact.
package domain

import "time"

// IdentityLink maps one local user to at most one remote CRM contact.
// Unique on UserID; updated in place on re-sync, never duplicated.
type IdentityLink struct {
	ID              string
	UserID          string
	RemoteContactID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
