package api

import (
	"context"
	"net/http"
	"strings"
)

const defaultRefreshReason = "api"

// RefreshDependencies defines the interface for queuing refreshes.
type RefreshDependencies interface {
	RequestRefresh(ctx context.Context, reason string) (string, bool)
}

// RefreshHandler handles manual refresh requests.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

type refreshResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// HandleRefresh handles POST /refresh requests. The optional "reason" query
// parameter is recorded with the request.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	reason := strings.TrimSpace(r.URL.Query().Get("reason"))
	if reason == "" {
		reason = defaultRefreshReason
	}

	id, ok := h.deps.RequestRefresh(r.Context(), reason)
	if !ok {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, codeBackpressure, ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, refreshResponse{Status: "accepted", ID: id})
}
