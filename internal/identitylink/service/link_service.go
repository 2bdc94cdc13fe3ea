// Package service implements the local-to-remote identity link sync.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"order-crm-sync/internal/crm"
	"order-crm-sync/internal/fault"
	"order-crm-sync/internal/identitylink/domain"
)

// ContactAPI is the minimal CRM surface needed by the link service.
type ContactAPI interface {
	CreateContact(ctx context.Context, in crm.ContactInput) (*crm.Contact, error)
	UpdateContact(ctx context.Context, id string, in crm.ContactInput) (*crm.Contact, error)
}

// LinkRepo is the minimal identity-link repository needed by the link service.
type LinkRepo interface {
	GetByUser(ctx context.Context, userID string) (*domain.IdentityLink, error)
	Upsert(ctx context.Context, link *domain.IdentityLink) error
}

// LinkService keeps one remote CRM contact per local user: update when a link
// exists, create-and-persist otherwise.
type LinkService struct {
	contacts ContactAPI
	links    LinkRepo
}

// NewLinkService returns a LinkService with the given dependencies.
func NewLinkService(contacts ContactAPI, links LinkRepo) *LinkService {
	return &LinkService{contacts: contacts, links: links}
}

// LinkContact syncs the user's contact data to the CRM. If a link exists the
// stored remote id is updated in place (wasUpdate=true); otherwise a remote
// contact is created and a new link persisted (wasUpdate=false). The remote
// call always precedes the local write so a partial failure is retry-safe.
func (s *LinkService) LinkContact(ctx context.Context, userID string, in crm.ContactInput) (remoteID string, wasUpdate bool, err error) {
	link, err := s.links.GetByUser(ctx, userID)
	if err != nil {
		return "", false, fault.Wrap(fault.KindUpstream, "look up identity link", err)
	}

	now := time.Now().UTC()
	if link != nil {
		contact, err := s.contacts.UpdateContact(ctx, link.RemoteContactID, in)
		if err != nil {
			return "", false, fault.Wrap(fault.KindUpstream, "update remote contact", err)
		}
		link.RemoteContactID = contact.ID
		link.UpdatedAt = now
		if err := s.links.Upsert(ctx, link); err != nil {
			return "", false, fault.Wrap(fault.KindUpstream, "persist identity link", err)
		}
		return contact.ID, true, nil
	}

	contact, err := s.contacts.CreateContact(ctx, in)
	if err != nil {
		return "", false, fault.Wrap(fault.KindUpstream, "create remote contact", err)
	}
	if contact.ID == "" {
		return "", false, fault.New(fault.KindInvalidResponse, "remote contact missing id")
	}
	if err := s.links.Upsert(ctx, &domain.IdentityLink{
		ID:              uuid.New().String(),
		UserID:          userID,
		RemoteContactID: contact.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}); err != nil {
		return "", false, fault.Wrap(fault.KindUpstream, "persist identity link", err)
	}
	return contact.ID, false, nil
}

// RemoteIDFor returns the remote contact id linked to userID, or a NotFound
// fault when the user has no link yet.
func (s *LinkService) RemoteIDFor(ctx context.Context, userID string) (string, error) {
	link, err := s.links.GetByUser(ctx, userID)
	if err != nil {
		return "", fault.Wrap(fault.KindUpstream, "look up identity link", err)
	}
	if link == nil {
		return "", fault.New(fault.KindNotFound, "no identity link for user")
	}
	return link.RemoteContactID, nil
}
