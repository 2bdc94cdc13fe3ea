// Package domain defines the audit log entry.
package domain

import "time"

// AuditLog records one authenticated mutation against the API.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	CreatedAt time.Time
}
