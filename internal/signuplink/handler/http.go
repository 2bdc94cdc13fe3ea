// Package handler exposes signup-link issuance and validation over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"order-crm-sync/internal/crm"
	"order-crm-sync/internal/fault"
	"order-crm-sync/internal/server/httpx"
	"order-crm-sync/internal/server/middleware"
	"order-crm-sync/internal/signuplink/domain"
	"order-crm-sync/internal/signuplink/service"
	"order-crm-sync/internal/telemetry"
	telemetrydomain "order-crm-sync/internal/telemetry/domain"
)

// LinkResolver resolves the caller's remote contact id when the issue request
// does not name one.
type LinkResolver interface {
	RemoteIDFor(ctx context.Context, userID string) (string, error)
}

type Handler struct {
	signup       *service.SignupService
	links        LinkResolver
	defaultTTL   time.Duration
	defaultLimit int
	emitter      telemetry.EventEmitter
}

func NewHandler(signup *service.SignupService, links LinkResolver, defaultTTL time.Duration, defaultLimit int, emitter telemetry.EventEmitter) *Handler {
	return &Handler{
		signup:       signup,
		links:        links,
		defaultTTL:   defaultTTL,
		defaultLimit: defaultLimit,
		emitter:      emitter,
	}
}

type issueRequest struct {
	RemoteID   string `json:"remoteId"`
	TTLDays    int    `json:"ttlDays"`
	UsageLimit int    `json:"usageLimit"`
}

type linkResponse struct {
	ID         string    `json:"id"`
	RemoteID   string    `json:"remoteId"`
	Code       string    `json:"code"`
	URL        string    `json:"url,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
	UsageLimit int       `json:"usageLimit"`
	UsageCount int       `json:"usageCount"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Issue handles POST /signup-links. RemoteID defaults to the caller's own
// identity link; ttl and usage limit fall back to configured defaults.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	var req issueRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}

	remoteID := req.RemoteID
	if remoteID == "" {
		resolved, err := h.links.RemoteIDFor(r.Context(), userID)
		if err != nil {
			if fault.IsKind(err, fault.KindNotFound) {
				httpx.WriteError(w, fault.New(fault.KindPreconditionFailed, "no linked contact; specify remoteId"))
				return
			}
			httpx.WriteError(w, err)
			return
		}
		remoteID = resolved
	}

	ttl := h.defaultTTL
	if req.TTLDays > 0 {
		ttl = time.Duration(req.TTLDays) * 24 * time.Hour
	}
	limit := h.defaultLimit
	if req.UsageLimit > 0 {
		limit = req.UsageLimit
	}

	issued, err := h.signup.Issue(r.Context(), remoteID, ttl, limit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	event := telemetrydomain.New(telemetrydomain.EventSignupIssued, "signuplink")
	event.UserID = userID
	event.RemoteID = remoteID
	telemetry.EmitAsync(h.emitter, r.Context(), event)

	httpx.WriteJSON(w, http.StatusCreated, toLinkResponse(issued.Link, issued.URL))
}

type validateRequest struct {
	RemoteID string `json:"remoteId"`
	Code     string `json:"code"`
}

type validateResponse struct {
	RemoteID      string       `json:"remoteId"`
	Profile       *crm.Contact `json:"profile,omitempty"`
	Link          linkResponse `json:"link"`
	RemainingUses int          `json:"remainingUses"`
}

// Validate handles POST /signup-links/validate. Public: consumes one use of
// the link and returns the current remote profile.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.BadRequest(w, err.Error())
		return
	}
	if req.RemoteID == "" || req.Code == "" {
		httpx.BadRequest(w, "remoteId and code required")
		return
	}

	validated, err := h.signup.Validate(r.Context(), req.RemoteID, req.Code)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	event := telemetrydomain.New(telemetrydomain.EventSignupValidated, "signuplink")
	event.RemoteID = req.RemoteID
	telemetry.EmitAsync(h.emitter, r.Context(), event)

	remaining := validated.Link.UsageLimit - validated.Link.UsageCount
	if remaining < 0 {
		remaining = 0
	}
	httpx.WriteJSON(w, http.StatusOK, validateResponse{
		RemoteID:      req.RemoteID,
		Profile:       validated.Profile,
		Link:          toLinkResponse(validated.Link, ""),
		RemainingUses: remaining,
	})
}

type historyResponse struct {
	Links []linkResponse `json:"links"`
}

// History handles GET /signup-links. Returns all links issued for the
// caller's linked contact, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	remoteID := r.URL.Query().Get("remoteId")
	if remoteID == "" {
		resolved, err := h.links.RemoteIDFor(r.Context(), userID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		remoteID = resolved
	}

	links, err := h.signup.History(r.Context(), remoteID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	resp := historyResponse{Links: make([]linkResponse, 0, len(links))}
	for _, l := range links {
		resp.Links = append(resp.Links, toLinkResponse(l, ""))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func toLinkResponse(l *domain.SignupLink, url string) linkResponse {
	return linkResponse{
		ID:         l.ID,
		RemoteID:   l.RemoteID,
		Code:       l.Code,
		URL:        url,
		ExpiresAt:  l.ExpiresAt,
		UsageLimit: l.UsageLimit,
		UsageCount: l.UsageCount,
		Active:     l.Active,
		CreatedAt:  l.CreatedAt,
	}
}
