// Package domain defines the signup link: a time-boxed, usage-limited access
// credential bound to a remote CRM contact.
package domain

import "time"

// SignupLink grants read access to one remote profile without a full login.
// Created on issuance; mutated only by validation (usage increment,
// deactivation on expiry); never deleted (kept for audit history).
type SignupLink struct {
	ID         string
	RemoteID   string
	Code       string
	ExpiresAt  time.Time
	UsageLimit int
	UsageCount int
	Active     bool
	CreatedAt  time.Time
}

// Expired reports whether the link is at or past its expiry at now. The
// comparison matches the consume query, which only accepts expires_at
// strictly in the future.
func (l *SignupLink) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Exhausted reports whether the link has no remaining uses.
func (l *SignupLink) Exhausted() bool {
	return l.UsageCount >= l.UsageLimit
}
