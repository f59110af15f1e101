package compression

import (
	"image/color"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/veridianlabs/veridian/internal/domain/fusion"
	"github.com/veridianlabs/veridian/internal/fixture"
)

func TestErrorLevelAnalysis(t *testing.T) {
	Convey("Given a compression scorer", t, func() {
		s := NewScorer()

		Convey("Noise re-compresses worse than a flat image", func() {
			noisy, _ := s.Image(fixture.NoiseRGBA(128, 128, 7))
			flat, _ := s.Image(fixture.FlatRGBA(128, 128, color.RGBA{R: 120, G: 130, B: 140, A: 255}))

			So(noisy.Valid, ShouldBeTrue)
			So(flat.Valid, ShouldBeTrue)
			So(noisy.Score, ShouldBeGreaterThan, flat.Score)
		})

		Convey("A flat image has near-zero error level", func() {
			flat, _ := s.Image(fixture.FlatRGBA(64, 64, color.RGBA{R: 200, G: 200, B: 200, A: 255}))

			So(flat.Score, ShouldBeLessThan, 2)
		})

		Convey("Scores saturate at the configured maximum", func() {
			capped := NewScorer(WithScoreMax(1))
			score, _ := capped.Image(fixture.NoiseRGBA(64, 64, 3))

			So(score.Score, ShouldEqual, 1)
			So(score.Max, ShouldEqual, 1)
		})

		Convey("Scores name the modality and polarity", func() {
			score, _ := s.Image(fixture.NoiseRGBA(32, 32, 1))

			So(score.Modality, ShouldEqual, fusion.ModalityCompression)
			So(score.Direction, ShouldEqual, fusion.HigherIsAnomalous)
			So(score.Min, ShouldEqual, 0)
			So(score.Max, ShouldEqual, float64(defaultScoreMax))
		})

		Convey("The heatmap matches the input dimensions", func() {
			_, heatmap := s.Image(fixture.NoiseRGBA(96, 48, 5))

			So(heatmap.Bounds().Dx(), ShouldEqual, 96)
			So(heatmap.Bounds().Dy(), ShouldEqual, 48)
		})
	})
}
