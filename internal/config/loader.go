package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if VERIDIAN_CONFIG is set
//  3. env (prefix VERIDIAN_)
func Load(ctx context.Context) (*Config, error) {
	_ = ctx // reserved for remote providers

	base := New()

	k := koanf.New(".")

	if path := os.Getenv("VERIDIAN_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: VERIDIAN_ADDR, VERIDIAN_EAR_THRESHOLD, ...
	// Keys map to the flat koanf tags on the struct; underscores preserved.
	envProvider := env.Provider("VERIDIAN_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "veridian_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EARThreshold <= 0 || c.EARThreshold >= 1:
		return fmt.Errorf("%w: ear_threshold must be in (0,1)", ErrInvalidConfig)
	case c.BlinkConsecFrames < 1:
		return fmt.Errorf("%w: blink_consec_frames must be >= 1", ErrInvalidConfig)
	case c.MinFaceCoverage < 0 || c.MinFaceCoverage > 1:
		return fmt.Errorf("%w: min_face_coverage must be in [0,1]", ErrInvalidConfig)
	case c.CacheTTLSeconds < 0:
		return fmt.Errorf("%w: cache_ttl_seconds must be >= 0", ErrInvalidConfig)
	case c.FreqCutoffHz <= 0:
		return fmt.Errorf("%w: freq_cutoff_hz must be positive", ErrInvalidConfig)
	case c.ELAQuality < 1 || c.ELAQuality > 100:
		return fmt.Errorf("%w: ela_quality must be in [1,100]", ErrInvalidConfig)
	case !(c.VerdictFake < c.VerdictSuspicious && c.VerdictSuspicious < c.VerdictLikely):
		return fmt.Errorf("%w: verdict thresholds must be strictly increasing", ErrInvalidConfig)
	}
	for name, w := range c.FusionWeights {
		if w < 0 {
			return fmt.Errorf("%w: fusion weight for %q must be non-negative", ErrInvalidConfig, name)
		}
	}
	return nil
}
