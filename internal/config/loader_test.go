package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/veridianlabs/veridian/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		os.Unsetenv("VERIDIAN_CONFIG")
		os.Unsetenv("VERIDIAN_ADDR")
		os.Unsetenv("VERIDIAN_EAR_THRESHOLD")

		Convey("When loading with defaults only", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then it should succeed with the documented defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9080")
				So(cfg.EARThreshold, ShouldEqual, 0.21)
				So(cfg.BlinkConsecFrames, ShouldEqual, 3)
				So(cfg.FreqCutoffHz, ShouldEqual, 16000)
				So(cfg.FreqDBFloor, ShouldEqual, -70)
				So(cfg.ELAQuality, ShouldEqual, 90)
				So(cfg.CacheTTLSeconds, ShouldEqual, 0)
				So(cfg.FusionWeights["liveness"], ShouldEqual, 0.40)
				So(cfg.VerdictFake, ShouldEqual, 0.3)
				So(cfg.VerdictLikely, ShouldEqual, 0.8)
			})
		})

		Convey("When overriding via environment variables", func() {
			os.Setenv("VERIDIAN_ADDR", ":7070")
			os.Setenv("VERIDIAN_EAR_THRESHOLD", "0.25")
			defer os.Unsetenv("VERIDIAN_ADDR")
			defer os.Unsetenv("VERIDIAN_EAR_THRESHOLD")

			cfg, err := config.Load(context.Background())

			Convey("Then env values should win over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.EARThreshold, ShouldEqual, 0.25)
			})
		})

		Convey("When a threshold is out of range", func() {
			os.Setenv("VERIDIAN_EAR_THRESHOLD", "1.5")
			defer os.Unsetenv("VERIDIAN_EAR_THRESHOLD")

			_, err := config.Load(context.Background())

			Convey("Then loading should fail with ErrInvalidConfig", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "ear_threshold")
			})
		})

		Convey("When the cache TTL is negative", func() {
			os.Setenv("VERIDIAN_CACHE_TTL_SECONDS", "-5")
			defer os.Unsetenv("VERIDIAN_CACHE_TTL_SECONDS")

			_, err := config.Load(context.Background())

			Convey("Then loading should fail with ErrInvalidConfig", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "cache_ttl_seconds")
			})
		})

		Convey("When loading from a YAML file", func() {
			f, err := os.CreateTemp(t.TempDir(), "veridian-*.yaml")
			So(err, ShouldBeNil)
			_, err = f.WriteString("addr: ':6060'\nela_quality: 75\n")
			So(err, ShouldBeNil)
			So(f.Close(), ShouldBeNil)

			os.Setenv("VERIDIAN_CONFIG", f.Name())
			defer os.Unsetenv("VERIDIAN_CONFIG")

			cfg, err := config.Load(context.Background())

			Convey("Then file values should layer over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":6060")
				So(cfg.ELAQuality, ShouldEqual, 75)
				So(cfg.FreqMaskSize, ShouldEqual, 30)
			})
		})
	})
}
