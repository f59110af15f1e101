// Package history keeps a bounded record of completed scans for the recent
// activity and stats endpoints. The cache answers "what was the verdict for
// these bytes"; history answers "what has this instance been doing".
package history

import (
	"context"
	"time"

	"github.com/veridianlabs/veridian/internal/domain/fusion"
)

// Record is one completed scan.
type Record struct {
	JobID       string         `json:"job_id"`
	Fingerprint string         `json:"fingerprint"`
	Kind        string         `json:"kind"`
	Path        string         `json:"path,omitempty"`
	Verdict     fusion.Verdict `json:"verdict"`
	Confidence  *float64       `json:"confidence"`
	ThreatLevel string         `json:"threat_level"`
	Cached      bool           `json:"cached"`
	Duration    time.Duration  `json:"duration_ns"`
	CompletedAt time.Time      `json:"completed_at"`
	Error       string         `json:"error,omitempty"`
}

// Stats aggregates the retained history.
type Stats struct {
	TotalScans     int64            `json:"total_scans"`
	Verdicts       map[string]int64 `json:"verdicts"`
	CacheHits      int64            `json:"cache_hits"`
	Failures       int64            `json:"failures"`
	MeanDurationMS float64          `json:"mean_duration_ms"`
}

// Store provides read/write access to recent scans.
type Store interface {
	// Add records a completed scan, evicting the oldest record when the
	// retention bound is reached.
	Add(ctx context.Context, rec Record) error

	// Recent returns up to limit records, most recent first.
	// Returns ErrInvalidLimit when limit is not positive.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// ByJobID returns the scan with the given job ID.
	// Returns ErrNotFound when the job is unknown or already evicted.
	ByJobID(ctx context.Context, jobID string) (Record, error)

	// Stats aggregates the currently retained records.
	Stats(ctx context.Context) Stats

	// Count returns the number of retained records.
	Count(ctx context.Context) int
}
