// Package crm wraps the remote CRM/billing HTTP API and normalizes its
// transport and application errors into the fault taxonomy.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"order-crm-sync/internal/fault"
)

const defaultTimeout = 15 * time.Second

// Client calls the remote CRM/billing API. Construct once with the loaded
// config and share; all fields are set at construction and never mutated.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient returns a client for the API at baseURL authenticated with the
// given bearer token. timeout <= 0 falls back to 15s.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// errorEnvelope is the structured error body the remote API returns on non-2xx.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// do issues one request and decodes a 2xx JSON body into out (may be nil).
// Non-2xx responses become Upstream faults carrying the remote message when
// the error body parses, or the HTTP status text when it does not. 404 on
// GETs becomes NotFound so read paths can degrade at the call site.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if c.baseURL == "" {
		return fault.New(fault.KindUpstream, "crm base URL not configured")
	}
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fault.Wrap(fault.KindUpstream, "encode request", err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fault.Wrap(fault.KindUpstream, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.Wrap(fault.KindUpstream, "crm request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fault.Wrap(fault.KindUpstream, "read crm response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if method == http.MethodGet && resp.StatusCode == http.StatusNotFound {
			return fault.New(fault.KindNotFound, "crm entity not found")
		}
		var env errorEnvelope
		if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
			return fault.New(fault.KindUpstream, env.Message)
		}
		return fault.Newf(fault.KindUpstream, "crm returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fault.Wrap(fault.KindInvalidResponse, "malformed crm response", err)
	}
	return nil
}

// CreateContact creates a contact and returns the created record.
// A 2xx response without an identifier is an InvalidResponse fault.
func (c *Client) CreateContact(ctx context.Context, in ContactInput) (*Contact, error) {
	var contact Contact
	if err := c.do(ctx, http.MethodPost, "/contacts", in, &contact); err != nil {
		return nil, err
	}
	if contact.ID == "" {
		return nil, fault.New(fault.KindInvalidResponse, "crm contact response missing id")
	}
	return &contact, nil
}

// UpdateContact updates the contact with the given remote id.
func (c *Client) UpdateContact(ctx context.Context, id string, in ContactInput) (*Contact, error) {
	var contact Contact
	if err := c.do(ctx, http.MethodPut, "/contacts/"+url.PathEscape(id), in, &contact); err != nil {
		return nil, err
	}
	if contact.ID == "" {
		// Some deployments echo an empty body on update; fall back to the known id.
		contact.ID = id
	}
	return &contact, nil
}

// GetContact returns the contact with the given remote id.
func (c *Client) GetContact(ctx context.Context, id string) (*Contact, error) {
	var contact Contact
	if err := c.do(ctx, http.MethodGet, "/contacts/"+url.PathEscape(id), nil, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// searchResult is the remote list envelope shared by all search endpoints.
type searchResult[T any] struct {
	Data []T `json:"data"`
}

func search[T any](ctx context.Context, c *Client, resource, criteria string) ([]T, error) {
	path := fmt.Sprintf("/%s/search?criteria=%s", resource, url.QueryEscape(criteria))
	var res searchResult[T]
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

// SearchContacts returns contacts matching the criteria string (see EqualsQuery).
func (c *Client) SearchContacts(ctx context.Context, criteria string) ([]Contact, error) {
	return search[Contact](ctx, c, "contacts", criteria)
}

// CreateSalesOrder creates a sales order and returns the created record.
func (c *Client) CreateSalesOrder(ctx context.Context, in SalesOrderInput) (*SalesOrder, error) {
	var order SalesOrder
	if err := c.do(ctx, http.MethodPost, "/salesorders", in, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, fault.New(fault.KindInvalidResponse, "crm sales order response missing id")
	}
	return &order, nil
}

// SearchSalesOrders returns sales orders matching the criteria string.
func (c *Client) SearchSalesOrders(ctx context.Context, criteria string) ([]SalesOrder, error) {
	return search[SalesOrder](ctx, c, "salesorders", criteria)
}

// GetPayment returns the payment with the given remote id.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RecordPayment records a settled payment against a contact.
func (c *Client) RecordPayment(ctx context.Context, in PaymentInput) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodPost, "/payments", in, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fault.New(fault.KindInvalidResponse, "crm payment response missing id")
	}
	return &p, nil
}

// RefundPayment refunds amountCents of the payment with the given remote id.
func (c *Client) RefundPayment(ctx context.Context, id string, amountCents int64) (*Payment, error) {
	in := map[string]int64{"amountCents": amountCents}
	var p Payment
	if err := c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(id)+"/refund", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchDeals returns deals matching the criteria string.
func (c *Client) SearchDeals(ctx context.Context, criteria string) ([]Deal, error) {
	return search[Deal](ctx, c, "deals", criteria)
}

// SearchTasks returns tasks matching the criteria string.
func (c *Client) SearchTasks(ctx context.Context, criteria string) ([]Task, error) {
	return search[Task](ctx, c, "tasks", criteria)
}

// SearchNotes returns notes matching the criteria string.
func (c *Client) SearchNotes(ctx context.Context, criteria string) ([]Note, error) {
	return search[Note](ctx, c, "notes", criteria)
}
