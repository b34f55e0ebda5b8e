package api

import (
	"context"
	"net/http"

	"github.com/okian/competence/internal/domain/chart"
)

// ChartDependencies defines the interface for chart payloads.
type ChartDependencies interface {
	Chart(ctx context.Context) (chart.Chart, error)
}

// ChartHandler serves the render-ready chart payload.
type ChartHandler struct {
	deps ChartDependencies
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(deps ChartDependencies) *ChartHandler {
	return &ChartHandler{deps: deps}
}

// HandleChart handles GET /chart requests.
func (h *ChartHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	c, err := h.deps.Chart(r.Context())
	if err != nil {
		writeReadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
