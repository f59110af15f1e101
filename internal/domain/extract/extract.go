// Package extract decodes media assets into analyzable samples: a pixel
// buffer for images, PCM for audio, and an incremental frame stream for
// video. Extraction is pure and forward-only; decode resources are released
// when a stream is exhausted or closed.
package extract

import (
	"context"
	"image"
	"time"

	"github.com/veridianlabs/veridian/internal/domain/landmark"
)

// Frame is one decoded video frame. Landmarks are empty when no face was
// detected; such frames still count toward stream totals.
type Frame struct {
	Index     int
	Timestamp time.Duration
	Gray      *image.Gray
	Landmarks landmark.Set
	FaceFound bool
}

// FrameSource produces frames one at a time. Next returns io.EOF after the
// last frame. Implementations release decode resources on Close and on EOF.
type FrameSource interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// Clip is a decoded mono PCM stream normalized to [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the wall-clock span of the clip.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}
