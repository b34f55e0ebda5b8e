package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/competence/internal/adapters/repository"
	"github.com/okian/competence/internal/domain/model"
)

// CategoriesDependencies defines the read operations on category summaries.
type CategoriesDependencies interface {
	Latest(ctx context.Context) (repository.Snapshot, error)
	Category(ctx context.Context, name string) (model.CategorySummary, error)
}

// CategoriesHandler serves the aggregation result.
type CategoriesHandler struct {
	deps CategoriesDependencies
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(deps CategoriesDependencies) *CategoriesHandler {
	return &CategoriesHandler{deps: deps}
}

// HandleList handles GET /categories requests.
func (h *CategoriesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap, err := h.deps.Latest(r.Context())
	if err != nil {
		writeReadError(w, err)
		return
	}
	setSnapshotHeaders(w, snap)
	writeJSON(w, http.StatusOK, snap.Result)
}

// HandleGet handles GET /categories/{name} requests.
func (h *CategoriesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/categories/")
	if name == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, ErrBadRequest)
		return
	}
	summary, err := h.deps.Category(r.Context(), name)
	if err != nil {
		writeReadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleTotals handles GET /totals requests.
func (h *CategoriesHandler) HandleTotals(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap, err := h.deps.Latest(r.Context())
	if err != nil {
		writeReadError(w, err)
		return
	}
	setSnapshotHeaders(w, snap)
	writeJSON(w, http.StatusOK, snap.Result.Totals())
}

func setSnapshotHeaders(w http.ResponseWriter, snap repository.Snapshot) {
	h := w.Header()
	h.Set("X-Snapshot-Id", snap.ID)
	h.Set("X-Snapshot-Seq", strconv.FormatUint(snap.Seq, 10))
	if !snap.FetchedAt.IsZero() {
		h.Set("Last-Modified", snap.FetchedAt.UTC().Format(http.TimeFormat))
	}
}

