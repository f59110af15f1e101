// Package landmark defines the face landmark contract used by the liveness
// detector. The detector is an explicitly constructed dependency passed in
// by the caller for the duration of one analysis; there is no process-wide
// model handle.
package landmark

import (
	"context"
	"image"
	"math"
)

// Point is a normalized landmark coordinate in [0,1] relative to the frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Set holds the mesh points of a single detected face, indexed by the mesh
// topology of the upstream landmarker. Empty means no face in the frame.
type Set []Point

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Detector locates facial landmarks in a frame. Implementations must be safe
// for sequential reuse across the frames of one stream; they are not assumed
// safe for concurrent use.
type Detector interface {
	// Detect returns the landmark set of the most prominent face and whether
	// a face was found at all. An error means the detector itself failed.
	Detect(ctx context.Context, frame *image.Gray) (Set, bool, error)
}
