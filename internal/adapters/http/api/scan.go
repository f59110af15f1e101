package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	service "github.com/veridianlabs/veridian/internal/app"
	"github.com/veridianlabs/veridian/internal/domain/extract"
	"github.com/veridianlabs/veridian/internal/domain/media"
)

// scanRequest is the body of POST /api/scan. Kind is inferred from the file
// extension when omitted.
type scanRequest struct {
	Path          string `json:"path"`
	Kind          string `json:"kind,omitempty"`
	WatermarkText string `json:"watermark_text,omitempty"`
	Async         bool   `json:"async,omitempty"`
}

func (s scanRequest) validate() error {
	if strings.TrimSpace(s.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

// scanAccepted is returned for async submissions.
type scanAccepted struct {
	Status      string `json:"status"`
	JobID       string `json:"job_id"`
	Fingerprint string `json:"fingerprint"`
}

// ScanHandler handles scan submissions.
type ScanHandler struct {
	deps Dependencies
}

// NewScanHandler creates a scan handler.
func NewScanHandler(deps Dependencies) *ScanHandler {
	return &ScanHandler{deps: deps}
}

// HandleScan handles POST /api/scan.
func (h *ScanHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	kind, err := resolveKind(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if req.Async {
		h.submitAsync(w, r, req, kind)
		return
	}

	asset, err := media.NewAssetFromFile(kind, req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable_asset", err)
		return
	}
	result, err := h.deps.Analyze(r.Context(), asset, req.WatermarkText)
	if err != nil {
		if errors.Is(err, extract.ErrDecode) || errors.Is(err, extract.ErrEmptyStream) {
			writeError(w, http.StatusUnprocessableEntity, "undecodable", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ScanHandler) submitAsync(w http.ResponseWriter, r *http.Request, req scanRequest, kind media.Kind) {
	job, err := h.deps.Submit(r.Context(), req.Path, kind, req.WatermarkText)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, scanAccepted{
			Status:      "accepted",
			JobID:       job.ID,
			Fingerprint: job.Fingerprint,
		})
	case errors.Is(err, service.ErrInFlight):
		writeError(w, http.StatusConflict, "in_flight", err)
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
	default:
		writeError(w, http.StatusBadRequest, "unreadable_asset", err)
	}
}

func resolveKind(req scanRequest) (media.Kind, error) {
	if req.Kind != "" {
		return media.ParseKind(req.Kind)
	}
	kind, ok := media.KindFromPath(req.Path)
	if !ok {
		return "", errors.New("cannot infer kind from path; set kind explicitly")
	}
	return kind, nil
}
