package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/veridianlabs/veridian/internal/adapters/history"
)

// ResultHandler serves stored verdicts and async job outcomes.
type ResultHandler struct {
	deps Dependencies
}

// NewResultHandler creates a result handler.
func NewResultHandler(deps Dependencies) *ResultHandler {
	return &ResultHandler{deps: deps}
}

// HandleResult handles GET /api/result/{fingerprint}.
func (h *ResultHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	fingerprint := strings.TrimPrefix(r.URL.Path, "/api/result/")
	if fingerprint == "" || strings.Contains(fingerprint, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	result, ok := h.deps.Result(r.Context(), fingerprint)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", errors.New("no result for fingerprint"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleJob handles GET /api/job/{id}.
func (h *ResultHandler) HandleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	jobID := strings.TrimPrefix(r.URL.Path, "/api/job/")
	if jobID == "" || strings.Contains(jobID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	rec, err := h.deps.Job(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
