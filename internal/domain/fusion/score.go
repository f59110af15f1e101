// Package fusion combines independent detector signals into one calibrated
// verdict. Detectors never decide; they report a scalar with a known range
// and polarity, and the engine here owns banding and tie-breaks.
package fusion

// Direction records the polarity of a raw detector score.
type Direction string

const (
	// HigherIsAnomalous means larger raw scores indicate manipulation.
	HigherIsAnomalous Direction = "higher_is_anomalous"
	// LowerIsAnomalous means smaller raw scores indicate manipulation.
	LowerIsAnomalous Direction = "lower_is_anomalous"
)

// Modality names shared between detectors, fusion weights and the API.
const (
	ModalityLiveness    = "liveness"
	ModalityFrequency   = "frequency"
	ModalityCompression = "compression"
	ModalityWatermark   = "watermark"
)

// ModalityScore is the uniform result type every detector reports. Invalid
// scores carry a reason and are excluded from weighting entirely.
type ModalityScore struct {
	Modality  string
	Score     float64
	Min, Max  float64
	Valid     bool
	Direction Direction

	// StrongTell marks a decisive single-modality anomaly that overrides
	// averaging (e.g. a glitching blink rate).
	StrongTell bool

	// Reason explains an invalid score (insufficient signal, timeout, ...).
	Reason string
}

// Invalid builds an invalid score for a modality with the given reason.
func Invalid(modality, reason string) ModalityScore {
	return ModalityScore{Modality: modality, Reason: reason}
}

// normalized maps the raw score into [0,1] "evidence of authenticity"
// polarity, clamping to the declared range.
func (s ModalityScore) normalized() float64 {
	span := s.Max - s.Min
	if span <= 0 {
		return 0.5
	}
	v := (s.Score - s.Min) / span
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	if s.Direction == HigherIsAnomalous {
		v = 1 - v
	}
	return v
}
