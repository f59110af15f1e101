// Package compression implements error level analysis. The image is
// re-encoded as JPEG at a known quality and diffed against the original;
// regions that were pasted, inpainted, or generated re-compress differently
// from the rest of the frame and stand out in the residual.
package compression

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/veridianlabs/veridian/internal/domain/fusion"
)

const (
	defaultQuality  = 90
	defaultScoreMax = 30

	// heatmapGain amplifies the residual so faint error levels survive
	// 8-bit quantization in the rendered heatmap.
	heatmapGain = 10
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithQuality sets the JPEG re-encode quality.
func WithQuality(q int) Option {
	return func(s *Scorer) {
		if q >= 1 && q <= 100 {
			s.quality = q
		}
	}
}

// WithScoreMax sets the residual mean at which the score saturates.
func WithScoreMax(maxScore float64) Option {
	return func(s *Scorer) {
		if maxScore > 0 {
			s.scoreMax = maxScore
		}
	}
}

// Scorer computes compression artifact modality scores.
type Scorer struct {
	quality  int
	scoreMax float64
}

// NewScorer constructs a Scorer with default configuration.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		quality:  defaultQuality,
		scoreMax: defaultScoreMax,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Image scores the mean error level of an image together with an amplified
// residual heatmap. A higher mean residual means the content responded less
// uniformly to re-compression.
func (s *Scorer) Image(img image.Image) (fusion.ModalityScore, *image.Gray) {
	src := toRGBA(img)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return fusion.Invalid(fusion.ModalityCompression, "empty image"), nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: s.quality}); err != nil {
		return fusion.Invalid(fusion.ModalityCompression, "re-encode failed"), nil
	}
	decoded, err := jpeg.Decode(&buf)
	if err != nil {
		return fusion.Invalid(fusion.ModalityCompression, "re-decode failed"), nil
	}
	re := toRGBA(decoded)

	heatmap := image.NewGray(image.Rect(0, 0, w, h))
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := src.PixOffset(x, y)
			ri := re.PixOffset(x, y)
			d := absDiff(src.Pix[si], re.Pix[ri]) +
				absDiff(src.Pix[si+1], re.Pix[ri+1]) +
				absDiff(src.Pix[si+2], re.Pix[ri+2])
			sum += float64(d) / 3

			amplified := d / 3 * heatmapGain
			if amplified > 255 {
				amplified = 255
			}
			heatmap.Pix[y*heatmap.Stride+x] = uint8(amplified)
		}
	}
	score := sum / float64(w*h)
	if score > s.scoreMax {
		score = s.scoreMax
	}

	return fusion.ModalityScore{
		Modality:  fusion.ModalityCompression,
		Score:     score,
		Min:       0,
		Max:       s.scoreMax,
		Valid:     true,
		Direction: fusion.HigherIsAnomalous,
	}, heatmap
}

// toRGBA normalizes any decoded image into RGBA with a zero-origin bounds.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == image.Pt(0, 0) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
