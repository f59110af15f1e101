package fusion

// Default fusion configuration. Weights and thresholds are tunable
// configuration, not load-bearing business logic.
const (
	defaultWeight           = 0.25
	defaultFakeThreshold    = 0.3
	defaultSuspectThreshold = 0.5
	defaultLikelyThreshold  = 0.8
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights sets the per-modality weight table.
func WithWeights(weights map[string]float64) Option {
	return func(e *Engine) {
		if len(weights) == 0 {
			return
		}
		e.weights = make(map[string]float64, len(weights))
		for name, w := range weights {
			if w >= 0 {
				e.weights[name] = w
			}
		}
	}
}

// WithThresholds sets the confidence-to-verdict cut points. They must be
// strictly increasing; invalid combinations are ignored.
func WithThresholds(fake, suspicious, likely float64) Option {
	return func(e *Engine) {
		if fake < suspicious && suspicious < likely {
			e.fakeThreshold = fake
			e.suspectThreshold = suspicious
			e.likelyThreshold = likely
		}
	}
}

// Engine is the deterministic fusion policy: weighted confidence over valid
// modalities, threshold banding, strong-tell override.
type Engine struct {
	weights          map[string]float64
	fakeThreshold    float64
	suspectThreshold float64
	likelyThreshold  float64
}

// New constructs an Engine with default weights and thresholds.
func New(opts ...Option) *Engine {
	e := &Engine{
		weights: map[string]float64{
			ModalityLiveness:    0.40,
			ModalityFrequency:   0.35,
			ModalityCompression: 0.25,
		},
		fakeThreshold:    defaultFakeThreshold,
		suspectThreshold: defaultSuspectThreshold,
		likelyThreshold:  defaultLikelyThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) weightOf(modality string) float64 {
	if w, ok := e.weights[modality]; ok {
		return w
	}
	return defaultWeight
}

// Fuse combines the detector scores into a Result. Weights of invalid
// modalities are excluded and the remainder renormalized to sum to 1, so a
// missing signal never biases the outcome. If every modality is invalid the
// verdict is INCONCLUSIVE with nil confidence.
func (e *Engine) Fuse(scores []ModalityScore, expl Explainability) *Result {
	contributions := make([]Contribution, 0, len(scores))

	var validCount int
	var totalWeight float64
	for _, s := range scores {
		if s.Valid {
			validCount++
			totalWeight += e.weightOf(s.Modality)
		}
	}
	// An all-zero weight table still has signal; equal weights keep valid
	// modalities from reading as INCONCLUSIVE.
	equalSplit := totalWeight == 0 && validCount > 0

	var confidence float64
	var anyValid bool
	var strongTell bool
	for _, s := range scores {
		c := Contribution{
			Name:      s.Modality,
			Score:     s.Score,
			Valid:     s.Valid,
			Direction: s.Direction,
			Reason:    s.Reason,
		}
		if s.Valid {
			anyValid = true
			c.Normalized = s.normalized()
			if equalSplit {
				c.Weight = 1 / float64(validCount)
			} else {
				c.Weight = e.weightOf(s.Modality) / totalWeight
			}
			confidence += c.Weight * c.Normalized
			if s.StrongTell {
				strongTell = true
			}
		}
		contributions = append(contributions, c)
	}

	if !anyValid {
		return &Result{
			Verdict:        VerdictInconclusive,
			Confidence:     nil,
			ThreatLevel:    VerdictInconclusive.ThreatLevel(),
			Modalities:     contributions,
			Explainability: expl,
		}
	}

	verdict := e.band(confidence)
	if strongTell && (verdict == VerdictLikelyAuthentic || verdict == VerdictAuthentic) {
		// A known decisive tell overrides averaging.
		verdict = VerdictSuspicious
	}

	conf := confidence
	return &Result{
		Verdict:        verdict,
		Confidence:     &conf,
		ThreatLevel:    verdict.ThreatLevel(),
		Modalities:     contributions,
		Explainability: expl,
	}
}

func (e *Engine) band(confidence float64) Verdict {
	switch {
	case confidence < e.fakeThreshold:
		return VerdictFake
	case confidence < e.suspectThreshold:
		return VerdictSuspicious
	case confidence <= e.likelyThreshold:
		return VerdictLikelyAuthentic
	default:
		return VerdictAuthentic
	}
}
