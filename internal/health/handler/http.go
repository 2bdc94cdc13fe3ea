// Package handler exposes the service health probe.
package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"order-crm-sync/internal/gate/engine"
	"order-crm-sync/internal/server/httpx"
)

const probeTimeout = 2 * time.Second

type Handler struct {
	db    *sql.DB
	gates engine.Evaluator
}

func NewHandler(db *sql.DB, gates engine.Evaluator) *Handler {
	return &Handler{db: db, gates: gates}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Get handles GET /health. Reports database connectivity and gate engine
// readiness; any failing check degrades the probe to 503.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Checks["database"] = err.Error()
	} else {
		resp.Checks["database"] = "ok"
	}

	if err := h.gates.HealthCheck(ctx); err != nil {
		resp.Status = "degraded"
		resp.Checks["gates"] = err.Error()
	} else {
		resp.Checks["gates"] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, resp)
}
