// Package frequency scores frequency-domain energy distribution against the
// envelope expected of naturally captured media. Images get a 2-D spectrum
// score; audio gets an above-cutoff band-energy score. Banding into threat
// levels happens only in the fusion engine.
package frequency

// Default scorer configuration constants.
const (
	defaultMaskSize   = 30
	defaultImageMin   = 80
	defaultImageMax   = 200
	defaultCutoffHz   = 16_000
	defaultDBFloor    = -70
	defaultWindowSize = 2048
	defaultHopSize    = 512

	// dbMin clamps per-bin decibel values so silent bins do not drag the
	// mean to negative infinity.
	dbMin = -120.0
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithMaskSize sets the half-width of the central low-frequency mask.
func WithMaskSize(size int) Option {
	return func(s *Scorer) {
		if size > 0 {
			s.maskSize = size
		}
	}
}

// WithImageRange sets the empirical naturalness range used to normalize the
// image spectrum score.
func WithImageRange(minScore, maxScore float64) Option {
	return func(s *Scorer) {
		if minScore < maxScore {
			s.imageMin = minScore
			s.imageMax = maxScore
		}
	}
}

// WithCutoff sets the audio cutoff frequency and the decibel floor below
// which above-cutoff energy flags an artificial bandwidth limit.
func WithCutoff(cutoffHz, dbFloor float64) Option {
	return func(s *Scorer) {
		if cutoffHz > 0 {
			s.cutoffHz = cutoffHz
		}
		if dbFloor < 0 {
			s.dbFloor = dbFloor
		}
	}
}

// WithSTFT sets the short-time transform window and hop sizes.
func WithSTFT(windowSize, hopSize int) Option {
	return func(s *Scorer) {
		if windowSize > 0 && hopSize > 0 && hopSize <= windowSize {
			s.windowSize = windowSize
			s.hopSize = hopSize
		}
	}
}

// Scorer computes frequency-domain modality scores.
type Scorer struct {
	maskSize   int
	imageMin   float64
	imageMax   float64
	cutoffHz   float64
	dbFloor    float64
	windowSize int
	hopSize    int
}

// NewScorer constructs a Scorer with default configuration.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		maskSize:   defaultMaskSize,
		imageMin:   defaultImageMin,
		imageMax:   defaultImageMax,
		cutoffHz:   defaultCutoffHz,
		dbFloor:    defaultDBFloor,
		windowSize: defaultWindowSize,
		hopSize:    defaultHopSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
