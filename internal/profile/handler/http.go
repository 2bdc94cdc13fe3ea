// Package handler exposes the aggregated CRM profile read over HTTP.
package handler

import (
	"log"
	"net/http"
	"strings"

	"order-crm-sync/internal/crm"
	"order-crm-sync/internal/profile/service"
	"order-crm-sync/internal/server/httpx"
	"order-crm-sync/internal/server/middleware"
)

type Handler struct {
	profile *service.ProfileService
}

func NewHandler(profile *service.ProfileService) *Handler {
	return &Handler{profile: profile}
}

type profileResponse struct {
	RemoteID    string           `json:"remoteId"`
	Contact     *crm.Contact     `json:"contact"`
	SalesOrders []crm.SalesOrder `json:"salesOrders,omitempty"`
	Deals       []crm.Deal       `json:"deals,omitempty"`
	Tasks       []crm.Task       `json:"tasks,omitempty"`
	Notes       []crm.Note       `json:"notes,omitempty"`
}

// Get handles GET /crm/profile?include=salesOrders,deals,tasks,notes for the
// caller's linked contact. Sections that fail upstream are logged and returned
// empty; only an unresolvable identity link fails the request.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	include := parseInclude(r.URL.Query().Get("include"))

	agg, err := h.profile.ForUser(r.Context(), userID, include)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if agg.ContactErr != nil {
		log.Printf("profile: fetch contact: %v", agg.ContactErr)
	}
	resp := profileResponse{RemoteID: agg.RemoteID, Contact: agg.Contact}
	resp.SalesOrders = flatten("salesOrders", agg.SalesOrders)
	resp.Deals = flatten("deals", agg.Deals)
	resp.Tasks = flatten("tasks", agg.Tasks)
	resp.Notes = flatten("notes", agg.Notes)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// parseInclude reads the comma-separated include parameter. An empty parameter
// selects everything.
func parseInclude(raw string) service.Include {
	if raw == "" {
		return service.Include{SalesOrders: true, Deals: true, Tasks: true, Notes: true}
	}
	var inc service.Include
	for _, part := range strings.Split(raw, ",") {
		switch strings.TrimSpace(part) {
		case "salesOrders":
			inc.SalesOrders = true
		case "deals":
			inc.Deals = true
		case "tasks":
			inc.Tasks = true
		case "notes":
			inc.Notes = true
		}
	}
	return inc
}

// flatten returns the section items, logging and dropping the section error.
func flatten[T any](name string, s service.Section[T]) []T {
	if s.Err != nil {
		log.Printf("profile: fetch %s: %v", name, s.Err)
		return nil
	}
	return s.Items
}
