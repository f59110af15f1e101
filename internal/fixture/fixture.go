// Package fixture provides synthetic media generators for the test suite:
// controlled EAR frame streams, noise and gradient images, and sine audio
// clips. Nothing in this package is reachable from production code paths;
// it exists so tests never depend on checked-in sample files or hardcoded
// per-file expectations.
package fixture

import (
	"context"
	"image"
	"image/color"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/veridianlabs/veridian/internal/domain/extract"
	"github.com/veridianlabs/veridian/internal/domain/landmark"
)

// meshPoints is the face-mesh size produced by the synthetic landmarker.
const meshPoints = 468

// NoFace marks a frame without a detected face in an EAR sequence.
const NoFace = -1

// FrameSeq implements extract.FrameSource over pre-built frames.
type FrameSeq struct {
	frames []*extract.Frame
	pos    int
	closed bool
}

// NewFrameSeq wraps frames into a FrameSource.
func NewFrameSeq(frames ...*extract.Frame) *FrameSeq {
	return &FrameSeq{frames: frames}
}

// Next returns the next frame or io.EOF.
func (s *FrameSeq) Next(ctx context.Context) (*extract.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed || s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Close marks the stream exhausted.
func (s *FrameSeq) Close() error {
	s.closed = true
	return nil
}

// EARFrames builds a frame sequence at the given frame rate whose landmark
// geometry yields exactly the requested EAR values. A NoFace entry produces
// a frame with no detected face.
func EARFrames(ears []float64, fps float64) []*extract.Frame {
	if fps <= 0 {
		fps = 30
	}
	frames := make([]*extract.Frame, len(ears))
	for i, ear := range ears {
		f := &extract.Frame{
			Index:     i,
			Timestamp: time.Duration(float64(i) / fps * float64(time.Second)),
		}
		if ear != NoFace {
			f.Landmarks = MeshWithEAR(ear)
			f.FaceFound = true
		}
		frames[i] = f
	}
	return frames
}

// MeshWithEAR builds a landmark set whose eye geometry produces the given
// eye aspect ratio for both eyes.
func MeshWithEAR(ear float64) landmark.Set {
	set := make(landmark.Set, meshPoints)
	for i := range set {
		set[i] = landmark.Point{X: 0.5, Y: 0.5}
	}
	placeEye := func(eye [6]int, baseX float64) {
		const width = 0.1
		half := ear * width / 2
		set[eye[0]] = landmark.Point{X: baseX, Y: 0.5}
		set[eye[3]] = landmark.Point{X: baseX + width, Y: 0.5}
		set[eye[1]] = landmark.Point{X: baseX + width/3, Y: 0.5 - half}
		set[eye[5]] = landmark.Point{X: baseX + width/3, Y: 0.5 + half}
		set[eye[2]] = landmark.Point{X: baseX + 2*width/3, Y: 0.5 - half}
		set[eye[4]] = landmark.Point{X: baseX + 2*width/3, Y: 0.5 + half}
	}
	placeEye([6]int{33, 160, 158, 133, 153, 144}, 0.25)
	placeEye([6]int{362, 385, 387, 263, 373, 380}, 0.60)
	return set
}

// NoiseImage produces a deterministic white-noise grayscale image.
func NoiseImage(w, h int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

// GradientImage produces a smooth horizontal gradient, the frequency-domain
// opposite of noise.
func GradientImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 255 / max(w-1, 1))})
		}
	}
	return img
}

// NoiseRGBA produces a deterministic color noise image.
func NoiseRGBA(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

// FlatRGBA produces a uniform color image.
func FlatRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// SineClip produces a pure tone at the given frequency.
func SineClip(freqHz float64, sampleRate int, dur time.Duration) *extract.Clip {
	n := int(float64(sampleRate) * dur.Seconds())
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freqHz * float64(i) / float64(sampleRate))
	}
	return &extract.Clip{Samples: samples, SampleRate: sampleRate}
}

// BroadbandClip produces deterministic white noise occupying the full
// spectrum up to Nyquist.
func BroadbandClip(sampleRate int, dur time.Duration, seed int64) *extract.Clip {
	rng := rand.New(rand.NewSource(seed))
	n := int(float64(sampleRate) * dur.Seconds())
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = rng.Float64()*2 - 1
	}
	return &extract.Clip{Samples: samples, SampleRate: sampleRate}
}
