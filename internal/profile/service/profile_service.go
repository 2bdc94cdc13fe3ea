// Package service assembles the aggregated CRM profile view: the contact plus
// optional, individually best-effort collections of related entities.
package service

import (
	"context"

	"order-crm-sync/internal/crm"
)

// CRMReader is the read-only CRM surface needed for aggregation.
type CRMReader interface {
	GetContact(ctx context.Context, id string) (*crm.Contact, error)
	SearchSalesOrders(ctx context.Context, criteria string) ([]crm.SalesOrder, error)
	SearchDeals(ctx context.Context, criteria string) ([]crm.Deal, error)
	SearchTasks(ctx context.Context, criteria string) ([]crm.Task, error)
	SearchNotes(ctx context.Context, criteria string) ([]crm.Note, error)
}

// LinkResolver resolves the caller's own remote contact id.
type LinkResolver interface {
	RemoteIDFor(ctx context.Context, userID string) (string, error)
}

// Include selects which optional collections to fetch.
type Include struct {
	SalesOrders bool
	Deals       bool
	Tasks       bool
	Notes       bool
}

// Section is one best-effort collection: either the fetched items or the
// fetch error, so callers can distinguish "empty" from "failed" before the
// response boundary flattens failures to empty.
type Section[T any] struct {
	Items []T
	Err   error
}

// Aggregate is the assembled profile. Every part is best-effort: a failed
// contact fetch leaves Contact nil with the error in ContactErr.
type Aggregate struct {
	RemoteID    string
	Contact     *crm.Contact
	ContactErr  error
	SalesOrders Section[crm.SalesOrder]
	Deals       Section[crm.Deal]
	Tasks       Section[crm.Task]
	Notes       Section[crm.Note]
}

// ProfileService fetches aggregated CRM data for a linked user.
type ProfileService struct {
	reader CRMReader
	links  LinkResolver
}

// NewProfileService returns a ProfileService with the given dependencies.
func NewProfileService(reader CRMReader, links LinkResolver) *ProfileService {
	return &ProfileService{reader: reader, links: links}
}

// ForUser aggregates CRM data for the user's own identity link. It fails only
// when the link cannot be resolved; sub-fetch failures are carried in their
// sections for the handler to log and flatten.
func (s *ProfileService) ForUser(ctx context.Context, userID string, include Include) (*Aggregate, error) {
	remoteID, err := s.links.RemoteIDFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.ForRemoteID(ctx, remoteID, include)
}

// ForRemoteID aggregates CRM data for a known remote contact id.
func (s *ProfileService) ForRemoteID(ctx context.Context, remoteID string, include Include) (*Aggregate, error) {
	agg := &Aggregate{RemoteID: remoteID}

	// The contact itself is best-effort too: the aggregate only fails when
	// the caller has no resolvable link at all.
	agg.Contact, agg.ContactErr = s.reader.GetContact(ctx, remoteID)
	if agg.ContactErr != nil {
		agg.Contact = nil
	}

	criteria := crm.EqualsQuery(crm.Criterion{Field: "ContactId", Value: remoteID})
	if include.SalesOrders {
		agg.SalesOrders.Items, agg.SalesOrders.Err = s.reader.SearchSalesOrders(ctx, criteria)
	}
	if include.Deals {
		agg.Deals.Items, agg.Deals.Err = s.reader.SearchDeals(ctx, criteria)
	}
	if include.Tasks {
		agg.Tasks.Items, agg.Tasks.Err = s.reader.SearchTasks(ctx, criteria)
	}
	if include.Notes {
		agg.Notes.Items, agg.Notes.Err = s.reader.SearchNotes(ctx, criteria)
	}
	return agg, nil
}
