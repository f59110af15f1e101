// Package scan defines the unit of work flowing through the asynchronous
// analysis pipeline.
package scan

import (
	"time"

	"github.com/google/uuid"

	"github.com/veridianlabs/veridian/internal/domain/media"
)

// Job is one queued analysis request. The fingerprint is computed at
// submission so duplicate content can be collapsed before any decode work
// happens.
type Job struct {
	ID          string
	Path        string
	Kind        media.Kind
	Fingerprint string

	// WatermarkHint is optional extracted text carried along so asynchronous
	// scans check generator watermarks the same way synchronous ones do.
	WatermarkHint string

	SubmittedAt time.Time
}

// NewJob builds a job with a fresh ID.
func NewJob(path string, kind media.Kind, fingerprint, hint string) Job {
	return Job{
		ID:            uuid.NewString(),
		Path:          path,
		Kind:          kind,
		Fingerprint:   fingerprint,
		WatermarkHint: hint,
		SubmittedAt:   time.Now().UTC(),
	}
}
