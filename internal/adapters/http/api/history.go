package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/veridianlabs/veridian/internal/adapters/history"
)

const defaultHistoryLimit = 20

// HistoryHandler lists recent scans.
type HistoryHandler struct {
	deps Dependencies
}

// NewHistoryHandler creates a history handler.
func NewHistoryHandler(deps Dependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

// HandleHistory handles GET /api/history?limit=N.
func (h *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	records, err := h.deps.History(r.Context(), limit)
	if err != nil {
		if errors.Is(err, history.ErrInvalidLimit) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}
