package frequency

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/veridianlabs/veridian/internal/domain/extract"
	"github.com/veridianlabs/veridian/internal/domain/fusion"
)

// Audio scores the energy above the cutoff frequency, in decibels relative
// to the signal peak, averaged over all spectral windows. Natural
// recordings keep measurable energy above the cutoff; synthetic speech
// pipelines often band-limit below it. If the sample rate is too low to
// carry any bin above the cutoff, the modality is invalid rather than
// misleading.
func (s *Scorer) Audio(clip *extract.Clip) fusion.ModalityScore {
	nyquist := float64(clip.SampleRate) / 2
	if nyquist <= s.cutoffHz {
		return fusion.Invalid(fusion.ModalityFrequency, "sample rate below cutoff")
	}
	if len(clip.Samples) == 0 {
		return fusion.Invalid(fusion.ModalityFrequency, "empty clip")
	}

	spectra := s.stft(clip.Samples)
	if len(spectra) == 0 {
		return fusion.Invalid(fusion.ModalityFrequency, "clip shorter than one window")
	}

	// Global peak magnitude as the dB reference.
	var peak float64
	for _, window := range spectra {
		for _, m := range window {
			if m > peak {
				peak = m
			}
		}
	}
	if peak == 0 {
		return fusion.Invalid(fusion.ModalityFrequency, "silent clip")
	}

	binHz := float64(clip.SampleRate) / float64(s.windowSize)
	firstBin := int(math.Ceil(s.cutoffHz / binHz))

	var sum float64
	var count int
	for _, window := range spectra {
		for k := firstBin; k < len(window); k++ {
			db := 20 * math.Log10(window[k]/peak+1e-12)
			if db < dbMin {
				db = dbMin
			}
			sum += db
			count++
		}
	}
	if count == 0 {
		return fusion.Invalid(fusion.ModalityFrequency, "no bins above cutoff")
	}
	meanDB := sum / float64(count)

	return fusion.ModalityScore{
		Modality:   fusion.ModalityFrequency,
		Score:      meanDB,
		Min:        dbMin,
		Max:        0,
		Valid:      true,
		Direction:  fusion.LowerIsAnomalous,
		StrongTell: meanDB < s.dbFloor,
	}
}

// stft computes Hann-windowed magnitude spectra over hops of the clip.
// Clips shorter than one window are zero-padded into a single window.
func (s *Scorer) stft(samples []float64) [][]float64 {
	n := s.windowSize
	if len(samples) < n {
		padded := make([]float64, n)
		copy(padded, samples)
		samples = padded
	}

	fft := fourier.NewFFT(n)
	hann := make([]float64, n)
	for i := range hann {
		hann[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}

	var spectra [][]float64
	windowed := make([]float64, n)
	for start := 0; start+n <= len(samples); start += s.hopSize {
		for i := 0; i < n; i++ {
			windowed[i] = samples[start+i] * hann[i]
		}
		coeffs := fft.Coefficients(nil, windowed)
		mags := make([]float64, len(coeffs))
		for i, c := range coeffs {
			mags[i] = math.Hypot(real(c), imag(c))
		}
		spectra = append(spectra, mags)
	}
	return spectra
}
