// Package liveness analyzes temporal blink dynamics in a video frame
// stream. Eye closure is tracked per frame through the eye aspect ratio and
// debounced into discrete blink events by a small explicit state machine.
package liveness

import "github.com/veridianlabs/veridian/internal/domain/landmark"

// Face-mesh point indices of the six landmarks per eye, ordered
// p1..p6: outer corner, upper pair, inner corner, lower pair.
var (
	LeftEyeIndices  = [6]int{33, 160, 158, 133, 153, 144}
	RightEyeIndices = [6]int{362, 385, 387, 263, 373, 380}
)

// minMeshPoints is the smallest landmark set that covers both eyes.
const minMeshPoints = 388

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2*|p1-p4|) for one eye.
// Low values indicate a closed eye.
func EyeAspectRatio(set landmark.Set, eye [6]int) float64 {
	a := landmark.Distance(set[eye[1]], set[eye[5]])
	b := landmark.Distance(set[eye[2]], set[eye[4]])
	c := landmark.Distance(set[eye[0]], set[eye[3]])
	if c == 0 {
		return 0
	}
	return (a + b) / (2 * c)
}

// AverageEAR returns the mean EAR over both eyes, and false when the
// landmark set is too small to cover the eye region.
func AverageEAR(set landmark.Set) (float64, bool) {
	if len(set) < minMeshPoints {
		return 0, false
	}
	left := EyeAspectRatio(set, LeftEyeIndices)
	right := EyeAspectRatio(set, RightEyeIndices)
	return (left + right) / 2, true
}
