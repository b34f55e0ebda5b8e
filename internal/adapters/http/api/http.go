// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/competence/internal/adapters/repository"
	"github.com/okian/competence/internal/domain/chart"
	"github.com/okian/competence/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Latest returns the most recently published snapshot.
	Latest(ctx context.Context) (repository.Snapshot, error)
	// Category returns one category summary of the latest snapshot.
	Category(ctx context.Context, name string) (model.CategorySummary, error)
	// Chart builds the chart payload of the latest snapshot.
	Chart(ctx context.Context) (chart.Chart, error)
	// RequestRefresh queues a refresh. Returns false on backpressure.
	RequestRefresh(ctx context.Context, reason string) (string, bool)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	categoriesHandler *CategoriesHandler
	chartHandler      *ChartHandler
	refreshHandler    *RefreshHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		categoriesHandler: NewCategoriesHandler(deps),
		chartHandler:      NewChartHandler(deps),
		refreshHandler:    NewRefreshHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/categories", MetricsMiddleware(s.categoriesHandler.HandleList, "categories"))
	mux.HandleFunc("/categories/", MetricsMiddleware(s.categoriesHandler.HandleGet, "category"))
	mux.HandleFunc("/totals", MetricsMiddleware(s.categoriesHandler.HandleTotals, "totals"))
	mux.HandleFunc("/chart", MetricsMiddleware(s.chartHandler.HandleChart, "chart"))
	mux.HandleFunc("/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	markError(w, code)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeReadError maps errors from the read side onto HTTP statuses.
func writeReadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, codeNoData, ErrNoData)
	case errors.Is(err, repository.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, err)
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, ErrMethod)
	return false
}
