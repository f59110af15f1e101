package frequency

import (
	"image"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/veridianlabs/veridian/internal/domain/fusion"
)

// logEpsilon keeps the log-magnitude finite for zero bins.
const logEpsilon = 1e-5

// Image scores the 2-D spectrum of a luma buffer. The mean log-magnitude of
// the spectrum outside a small central mask falls in a bounded empirical
// range for camera-captured images and lower for synthetically smoothed
// content. The returned heatmap is the min-max normalized spectrum.
func (s *Scorer) Image(img *image.Gray) (fusion.ModalityScore, *image.Gray) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	spectrum := fftShift2(fft2(img), w, h)

	// Log magnitude, then zero out the central low-frequency block.
	mags := make([]float64, w*h)
	for i, c := range spectrum {
		mags[i] = 20 * math.Log(cmplxAbs(c)+logEpsilon)
	}
	cy, cx := h/2, w/2
	mask := s.maskSize
	for y := maxInt(cy-mask, 0); y < minInt(cy+mask, h); y++ {
		for x := maxInt(cx-mask, 0); x < minInt(cx+mask, w); x++ {
			mags[y*w+x] = 0
		}
	}

	var sum float64
	for _, m := range mags {
		sum += m
	}
	score := sum / float64(len(mags))

	return fusion.ModalityScore{
		Modality:  fusion.ModalityFrequency,
		Score:     score,
		Min:       s.imageMin,
		Max:       s.imageMax,
		Valid:     true,
		Direction: fusion.LowerIsAnomalous,
	}, renderHeatmap(mags, w, h)
}

// fft2 computes the 2-D DFT of a grayscale image, rows then columns.
func fft2(img *image.Gray) []complex128 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	data := make([]complex128, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data[y*w+x] = complex(float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y), 0)
		}
	}

	rowFFT := fourier.NewCmplxFFT(w)
	row := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(row, data[y*w:(y+1)*w])
		rowFFT.Coefficients(data[y*w:(y+1)*w], row)
	}

	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	out := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = data[y*w+x]
		}
		colFFT.Coefficients(out, col)
		for y := 0; y < h; y++ {
			data[y*w+x] = out[y]
		}
	}
	return data
}

// fftShift2 moves the zero-frequency component to the center.
func fftShift2(data []complex128, w, h int) []complex128 {
	out := make([]complex128, len(data))
	for y := 0; y < h; y++ {
		ny := (y + h/2) % h
		for x := 0; x < w; x++ {
			nx := (x + w/2) % w
			out[ny*w+nx] = data[y*w+x]
		}
	}
	return out
}

// renderHeatmap min-max normalizes magnitudes into an 8-bit image.
func renderHeatmap(mags []float64, w, h int) *image.Gray {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, m := range mags {
		if m < lo {
			lo = m
		}
		if m > hi {
			hi = m
		}
	}
	span := hi - lo
	img := image.NewGray(image.Rect(0, 0, w, h))
	if span <= 0 {
		return img
	}
	for i, m := range mags {
		img.Pix[i] = uint8((m - lo) / span * 255)
	}
	return img
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
