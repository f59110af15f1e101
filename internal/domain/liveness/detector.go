package liveness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/veridianlabs/veridian/internal/domain/extract"
	"github.com/veridianlabs/veridian/internal/domain/fusion"
)

// Default detector configuration constants. The thresholds mirror the tuned
// values of the reference pipeline and are overridable per instance.
const (
	defaultEARThreshold    = 0.21
	defaultDebounceFrames  = 3
	defaultMinFaceCoverage = 0.3
	defaultNaturalMinBPM   = 10
	defaultNaturalMaxBPM   = 40
	defaultHardMinBPM      = 5
	defaultHardMaxBPM      = 60

	// Authenticity-polarity scores per blink-rate band.
	scoreGlitching = 0.15
	scoreFrozen    = 0.20
	scoreNatural   = 0.85

	// minElapsed guards the BPM computation on very short streams.
	minElapsed = 100 * time.Millisecond
)

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithEARThreshold sets the eye-closure threshold.
func WithEARThreshold(threshold float64) Option {
	return func(d *Detector) {
		if threshold > 0 && threshold < 1 {
			d.earThreshold = threshold
		}
	}
}

// WithDebounceFrames sets the minimum consecutive closed frames per blink.
func WithDebounceFrames(frames int) Option {
	return func(d *Detector) {
		if frames >= 1 {
			d.debounceFrames = frames
		}
	}
}

// WithMinFaceCoverage sets the fraction of frames that must contain a face
// for the blink rate to be considered reliable.
func WithMinFaceCoverage(coverage float64) Option {
	return func(d *Detector) {
		if coverage >= 0 && coverage <= 1 {
			d.minFaceCoverage = coverage
		}
	}
}

// WithRateBands sets the natural and hard BPM band boundaries.
func WithRateBands(naturalMin, naturalMax, hardMin, hardMax float64) Option {
	return func(d *Detector) {
		if hardMin < naturalMin && naturalMin < naturalMax && naturalMax < hardMax {
			d.naturalMin = naturalMin
			d.naturalMax = naturalMax
			d.hardMin = hardMin
			d.hardMax = hardMax
		}
	}
}

// Detector computes a blink-rate modality score from a frame stream.
type Detector struct {
	earThreshold    float64
	debounceFrames  int
	minFaceCoverage float64
	naturalMin      float64
	naturalMax      float64
	hardMin         float64
	hardMax         float64
}

// NewDetector constructs a Detector with default configuration.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		earThreshold:    defaultEARThreshold,
		debounceFrames:  defaultDebounceFrames,
		minFaceCoverage: defaultMinFaceCoverage,
		naturalMin:      defaultNaturalMinBPM,
		naturalMax:      defaultNaturalMaxBPM,
		hardMin:         defaultHardMinBPM,
		hardMax:         defaultHardMaxBPM,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stats aggregates the observable facts of one analyzed stream.
type Stats struct {
	TotalFrames int
	FaceFrames  int
	TotalBlinks int
	RateBPM     float64
	Elapsed     time.Duration
	Events      []BlinkEvent
}

// Analyze consumes the frame stream in one pass and produces the liveness
// modality score. Frames without a detected face count toward totals but not
// toward blink detection; too few face frames degrade the score to invalid.
func (d *Detector) Analyze(ctx context.Context, src extract.FrameSource) (fusion.ModalityScore, Stats, error) {
	machine := NewMachine(d.earThreshold, d.debounceFrames)
	stats := Stats{}

	var firstTS, lastTS time.Duration
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fusion.ModalityScore{}, stats, fmt.Errorf("liveness frame read: %w", err)
		}

		if stats.TotalFrames == 0 {
			firstTS = frame.Timestamp
		}
		lastTS = frame.Timestamp
		stats.TotalFrames++

		if !frame.FaceFound {
			continue
		}
		ear, ok := AverageEAR(frame.Landmarks)
		if !ok {
			continue
		}
		stats.FaceFrames++
		if ev, emitted := machine.Observe(ear); emitted {
			stats.Events = append(stats.Events, ev)
		}
	}
	if ev, emitted := machine.Finish(); emitted {
		stats.Events = append(stats.Events, ev)
	}
	stats.TotalBlinks = len(stats.Events)

	if stats.TotalFrames == 0 {
		return fusion.Invalid(fusion.ModalityLiveness, "empty frame stream"), stats, nil
	}

	stats.Elapsed = lastTS - firstTS
	if stats.Elapsed < minElapsed {
		stats.Elapsed = minElapsed
	}
	stats.RateBPM = float64(stats.TotalBlinks) / stats.Elapsed.Seconds() * 60

	coverage := float64(stats.FaceFrames) / float64(stats.TotalFrames)
	if coverage < d.minFaceCoverage {
		return fusion.Invalid(fusion.ModalityLiveness, "insufficient face coverage"), stats, nil
	}

	score, strongTell := d.bandScore(stats.RateBPM)
	return fusion.ModalityScore{
		Modality:   fusion.ModalityLiveness,
		Score:      score,
		Min:        0,
		Max:        1,
		Valid:      true,
		Direction:  fusion.LowerIsAnomalous,
		StrongTell: strongTell,
	}, stats, nil
}

// bandScore maps a blink rate to an authenticity score. Rates beyond the
// hard bounds are decisive anomalies; the straddling bands interpolate
// linearly between the adjacent band boundary scores.
func (d *Detector) bandScore(bpm float64) (score float64, strongTell bool) {
	switch {
	case bpm > d.hardMax:
		return scoreGlitching, true
	case bpm < d.hardMin:
		return scoreFrozen, true
	case bpm >= d.naturalMin && bpm <= d.naturalMax:
		return scoreNatural, false
	case bpm < d.naturalMin:
		// hardMin..naturalMin: frozen score up to natural score.
		t := (bpm - d.hardMin) / (d.naturalMin - d.hardMin)
		return scoreFrozen + t*(scoreNatural-scoreFrozen), false
	default:
		// naturalMax..hardMax: natural score down to glitching score.
		t := (bpm - d.naturalMax) / (d.hardMax - d.naturalMax)
		return scoreNatural + t*(scoreGlitching-scoreNatural), false
	}
}
