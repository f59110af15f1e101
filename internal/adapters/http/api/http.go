// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/veridianlabs/veridian/internal/adapters/history"
	"github.com/veridianlabs/veridian/internal/domain/fusion"
	"github.com/veridianlabs/veridian/internal/domain/media"
	"github.com/veridianlabs/veridian/internal/domain/scan"
)

// Dependencies required by HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Analyze runs a synchronous scan of an asset.
	Analyze(ctx context.Context, asset *media.Asset, hint string) (*fusion.Result, error)

	// Submit queues an asynchronous scan of a local file. hint is optional
	// extracted text checked for generator watermarks at analysis time.
	Submit(ctx context.Context, path string, kind media.Kind, hint string) (scan.Job, error)

	// Result returns the cached verdict for a fingerprint.
	Result(ctx context.Context, fingerprint string) (*fusion.Result, bool)

	// Job returns the recorded outcome of an async scan.
	Job(ctx context.Context, jobID string) (history.Record, error)

	// History lists recent scans, most recent first.
	History(ctx context.Context, limit int) ([]history.Record, error)

	// Stats aggregates service activity.
	Stats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the triage API.
type Server struct {
	scanHandler    *ScanHandler
	resultHandler  *ResultHandler
	historyHandler *HistoryHandler
	statsHandler   *StatsHandler
	healthHandler  *HealthHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		scanHandler:    NewScanHandler(deps),
		resultHandler:  NewResultHandler(deps),
		historyHandler: NewHistoryHandler(deps),
		statsHandler:   NewStatsHandler(deps),
		healthHandler:  NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/scan", MetricsMiddleware(s.scanHandler.HandleScan, "scan"))
	mux.HandleFunc("/api/result/", MetricsMiddleware(s.resultHandler.HandleResult, "result"))
	mux.HandleFunc("/api/job/", MetricsMiddleware(s.resultHandler.HandleJob, "job"))
	mux.HandleFunc("/api/history", MetricsMiddleware(s.historyHandler.HandleHistory, "history"))
	mux.HandleFunc("/api/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
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
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
