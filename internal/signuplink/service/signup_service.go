// Package service issues and validates signup links: opaque, time-boxed,
// usage-limited access codes bound to a remote CRM contact.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"order-crm-sync/internal/crm"
	"order-crm-sync/internal/fault"
	"order-crm-sync/internal/signuplink/domain"
	"order-crm-sync/internal/signuplink/repository"
)

// maxCodeAttempts bounds regeneration on unique-code collisions.
const maxCodeAttempts = 5

// ProfileAPI is the minimal CRM surface needed to resolve a validated link.
type ProfileAPI interface {
	GetContact(ctx context.Context, id string) (*crm.Contact, error)
}

// LinkRepo is the signup-link repository needed by the service.
type LinkRepo interface {
	Create(ctx context.Context, link *domain.SignupLink) error
	Consume(ctx context.Context, remoteID, code string, now time.Time) (*domain.SignupLink, repository.ConsumeOutcome, error)
	ListByRemote(ctx context.Context, remoteID string) ([]*domain.SignupLink, error)
}

// SignupService issues and validates signup links.
type SignupService struct {
	links   LinkRepo
	profile ProfileAPI
	baseURL string
	now     func() time.Time
}

// NewSignupService returns a SignupService. baseURL is the public URL prefix
// for issued links (may be empty; URL is then omitted). now may be nil and
// defaults to time.Now; tests inject a fixed clock.
func NewSignupService(links LinkRepo, profile ProfileAPI, baseURL string, now func() time.Time) *SignupService {
	if now == nil {
		now = time.Now
	}
	return &SignupService{
		links:   links,
		profile: profile,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     now,
	}
}

// Issued describes a freshly issued link.
type Issued struct {
	Link *domain.SignupLink
	URL  string
}

// Issue creates a link for remoteID expiring after ttl with the given usage
// limit. Regenerates the code on store-level collision, up to maxCodeAttempts.
func (s *SignupService) Issue(ctx context.Context, remoteID string, ttl time.Duration, usageLimit int) (*Issued, error) {
	if remoteID == "" {
		return nil, fault.New(fault.KindPreconditionFailed, "remote id required")
	}
	if usageLimit < 1 {
		return nil, fault.New(fault.KindPreconditionFailed, "usage limit must be at least 1")
	}

	now := s.now().UTC()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, fault.Wrap(fault.KindUpstream, "generate signup code", err)
		}
		link := &domain.SignupLink{
			ID:         uuid.New().String(),
			RemoteID:   remoteID,
			Code:       code,
			ExpiresAt:  now.Add(ttl),
			UsageLimit: usageLimit,
			UsageCount: 0,
			Active:     true,
			CreatedAt:  now,
		}
		err = s.links.Create(ctx, link)
		if errors.Is(err, repository.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fault.Wrap(fault.KindUpstream, "persist signup link", err)
		}
		return &Issued{Link: link, URL: s.linkURL(link)}, nil
	}
	return nil, fault.New(fault.KindUpstream, "could not generate a unique signup code")
}

// Validated is the outcome of a successful validation: the consumed link and
// the current remote profile.
type Validated struct {
	Link    *domain.SignupLink
	Profile *crm.Contact
}

// Validate consumes one use of the link identified by exact (remoteID, code)
// and fetches the current remote profile. The expiry check, limit check, and
// increment happen in one atomic store operation; refusals map to NotFound,
// Expired (link deactivated), or LimitExceeded (link left active).
func (s *SignupService) Validate(ctx context.Context, remoteID, code string) (*Validated, error) {
	link, outcome, err := s.links.Consume(ctx, remoteID, code, s.now().UTC())
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "consume signup link", err)
	}
	switch outcome {
	case repository.ConsumeNotFound:
		return nil, fault.New(fault.KindNotFound, "signup link not found")
	case repository.ConsumeExpired:
		return nil, fault.New(fault.KindExpired, "signup link expired")
	case repository.ConsumeLimitExceeded:
		return nil, fault.New(fault.KindLimitExceeded, "signup link usage limit reached")
	}

	profile, err := s.profile.GetContact(ctx, remoteID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "fetch remote profile", err)
	}
	return &Validated{Link: link, Profile: profile}, nil
}

// History returns all links issued for remoteID, newest first.
func (s *SignupService) History(ctx context.Context, remoteID string) ([]*domain.SignupLink, error) {
	links, err := s.links.ListByRemote(ctx, remoteID)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstream, "list signup links", err)
	}
	return links, nil
}

func (s *SignupService) linkURL(link *domain.SignupLink) string {
	if s.baseURL == "" {
		return ""
	}
	return s.baseURL + "/" + link.Code
}
