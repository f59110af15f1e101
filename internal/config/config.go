// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers an optional YAML file and env vars.
// - Detector thresholds are configuration, never hardcoded in detectors.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ScanQueueSize bounds the in-memory async scan queue.
	ScanQueueSize int `koanf:"scan_queue_size"`

	// WorkerCount sets the number of scan workers.
	WorkerCount int `koanf:"worker_count"`

	// InflightSize bounds the in-flight fingerprint tracker.
	InflightSize int `koanf:"inflight_size"`

	// HistorySize bounds the in-memory scan history index.
	HistorySize int `koanf:"history_size"`

	// MaxHistoryLimit caps GET /api/history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// CacheDir is the Badger directory for the persisted result cache.
	// Empty selects an in-memory cache.
	CacheDir string `koanf:"cache_dir"`

	// CacheTTLSeconds expires cached results after this many seconds. Zero
	// keeps them for the life of the store.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// FFmpegPath and FFprobePath locate the external decode tools.
	FFmpegPath  string `koanf:"ffmpeg_path"`
	FFprobePath string `koanf:"ffprobe_path"`

	// LandmarkerPath locates the external facial landmark process. Empty
	// disables video liveness analysis.
	LandmarkerPath string `koanf:"landmarker_path"`

	// DetectorTimeoutMS bounds each detector run; a timeout degrades the
	// modality to invalid instead of failing the analysis.
	DetectorTimeoutMS int `koanf:"detector_timeout_ms"`

	// Liveness detector settings.
	EARThreshold      float64 `koanf:"ear_threshold"`
	BlinkConsecFrames int     `koanf:"blink_consec_frames"`
	MinFaceCoverage   float64 `koanf:"min_face_coverage"`
	BlinkNaturalMin   float64 `koanf:"blink_natural_min_bpm"`
	BlinkNaturalMax   float64 `koanf:"blink_natural_max_bpm"`
	BlinkHardMin      float64 `koanf:"blink_hard_min_bpm"`
	BlinkHardMax      float64 `koanf:"blink_hard_max_bpm"`

	// Frequency detector settings.
	FreqCutoffHz   float64 `koanf:"freq_cutoff_hz"`
	FreqDBFloor    float64 `koanf:"freq_db_floor"`
	FreqMaskSize   int     `koanf:"freq_mask_size"`
	FreqImageMin   float64 `koanf:"freq_image_min"`
	FreqImageMax   float64 `koanf:"freq_image_max"`
	FreqWindowSize int     `koanf:"freq_window_size"`
	FreqHopSize    int     `koanf:"freq_hop_size"`

	// Compression detector settings.
	ELAQuality  int     `koanf:"ela_quality"`
	ELAScoreMax float64 `koanf:"ela_score_max"`

	// FusionWeights maps modality names to their fusion weights. Weights of
	// invalid modalities are renormalized at fusion time.
	FusionWeights map[string]float64 `koanf:"fusion_weights"`

	// Confidence-to-verdict thresholds.
	VerdictFake       float64 `koanf:"verdict_fake"`
	VerdictSuspicious float64 `koanf:"verdict_suspicious"`
	VerdictLikely     float64 `koanf:"verdict_likely"`

	// WatermarkTerms lists substrings of known generator watermarks; a match
	// in caller-supplied extracted text is a strong tell.
	WatermarkTerms []string `koanf:"watermark_terms"`
}

// New creates a Config populated with defaults. The numeric detector
// defaults mirror the empirically tuned values of the reference pipeline.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		ScanQueueSize:   1024,
		WorkerCount:     runtime.NumCPU(),
		InflightSize:    10_000,
		HistorySize:     10_000,
		MaxHistoryLimit: 100,
		CacheDir:        "",
		CacheTTLSeconds: 0,
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		LandmarkerPath:  "",

		DetectorTimeoutMS: 60_000,

		EARThreshold:      0.21,
		BlinkConsecFrames: 3,
		MinFaceCoverage:   0.3,
		BlinkNaturalMin:   10,
		BlinkNaturalMax:   40,
		BlinkHardMin:      5,
		BlinkHardMax:      60,

		FreqCutoffHz:   16_000,
		FreqDBFloor:    -70,
		FreqMaskSize:   30,
		FreqImageMin:   80,
		FreqImageMax:   200,
		FreqWindowSize: 2048,
		FreqHopSize:    512,

		ELAQuality:  90,
		ELAScoreMax: 30,

		FusionWeights: map[string]float64{
			"liveness":    0.40,
			"frequency":   0.35,
			"compression": 0.25,
		},

		VerdictFake:       0.3,
		VerdictSuspicious: 0.5,
		VerdictLikely:     0.8,

		WatermarkTerms: []string{
			"sora", "veo", "imagen", "dall-e", "midjourney", "ai generated",
		},
	}
}
