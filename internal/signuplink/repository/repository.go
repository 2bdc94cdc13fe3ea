package repository

import (
	"context"
	"errors"
	"time"

	"order-crm-sync/internal/signuplink/domain"
)

// ErrCodeTaken is returned by Create when the generated code collides with an
// existing link; the issuer retries with a fresh code.
var ErrCodeTaken = errors.New("signup code already in use")

// ConsumeOutcome classifies the result of an atomic Consume.
type ConsumeOutcome int

const (
	// ConsumeOK means the usage count was incremented and the link returned.
	ConsumeOK ConsumeOutcome = iota
	// ConsumeNotFound means no link matches (remoteID, code).
	ConsumeNotFound
	// ConsumeExpired means the link is past expiry; it has been deactivated.
	ConsumeExpired
	// ConsumeLimitExceeded means the link has no remaining uses. The link
	// stays active so it can still be inspected and administered.
	ConsumeLimitExceeded
)

// Repository is the persistence contract for signup links. Consume must be a
// single atomic check-and-increment: under concurrent validations of a link
// with one remaining use, exactly one caller may get ConsumeOK.
type Repository interface {
	// Create persists a new link; ErrCodeTaken when the code is not unique.
	Create(ctx context.Context, link *domain.SignupLink) error
	// Consume atomically checks active/expiry/limit and increments the usage
	// count, classifying any refusal. The returned link reflects the state
	// after a successful increment.
	Consume(ctx context.Context, remoteID, code string, now time.Time) (*domain.SignupLink, ConsumeOutcome, error)
	// GetByRemoteAndCode returns the link for exact (remoteID, code), or nil.
	GetByRemoteAndCode(ctx context.Context, remoteID, code string) (*domain.SignupLink, error)
	// ListByRemote returns all links ever issued for remoteID, newest first.
	ListByRemote(ctx context.Context, remoteID string) ([]*domain.SignupLink, error)
}
