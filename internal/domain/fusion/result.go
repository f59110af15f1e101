package fusion

// Verdict is the discrete authenticity call for an asset.
type Verdict string

const (
	VerdictFake            Verdict = "FAKE"
	VerdictSuspicious      Verdict = "SUSPICIOUS"
	VerdictLikelyAuthentic Verdict = "LIKELY_AUTHENTIC"
	VerdictAuthentic       Verdict = "AUTHENTIC"
	VerdictInconclusive    Verdict = "INCONCLUSIVE"
)

// ThreatLevel maps a verdict to its threat band.
func (v Verdict) ThreatLevel() string {
	switch v {
	case VerdictFake:
		return "HIGH"
	case VerdictSuspicious:
		return "MEDIUM"
	case VerdictLikelyAuthentic:
		return "LOW"
	case VerdictAuthentic:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// Contribution is the per-modality breakdown kept for explainability.
// Weight is the renormalized fusion weight (zero for invalid modalities).
type Contribution struct {
	Name       string    `json:"name"`
	Score      float64   `json:"score"`
	Valid      bool      `json:"valid"`
	Direction  Direction `json:"direction"`
	Weight     float64   `json:"weight"`
	Normalized float64   `json:"normalized"`
	Reason     string    `json:"reason,omitempty"`
}

// Explainability carries the diagnostic artifacts detectors produced along
// the way. Heatmaps are base64-encoded JPEG payloads keyed by modality.
type Explainability struct {
	Heatmaps     map[string]string `json:"heatmaps,omitempty"`
	BlinkRateBPM *float64          `json:"blink_rate_bpm,omitempty"`
	TotalBlinks  *int              `json:"total_blinks,omitempty"`
}

// Result is the immutable unit placed in the content cache. Confidence is
// nil exactly when the verdict is INCONCLUSIVE.
type Result struct {
	Verdict        Verdict        `json:"verdict"`
	Confidence     *float64       `json:"confidence"`
	ThreatLevel    string         `json:"threat_level"`
	Modalities     []Contribution `json:"modalities"`
	Explainability Explainability `json:"explainability"`
}
