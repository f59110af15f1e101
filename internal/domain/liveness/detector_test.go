package liveness_test

import (
	"context"
	"testing"

	"github.com/veridianlabs/veridian/internal/domain/fusion"
	"github.com/veridianlabs/veridian/internal/domain/landmark"
	"github.com/veridianlabs/veridian/internal/domain/liveness"
	"github.com/veridianlabs/veridian/internal/fixture"
	. "github.com/smartystreets/goconvey/convey"
)

// blinkPattern builds an EAR sequence with the given number of debounced
// blinks spread over the frame count.
func blinkPattern(frames, blinks int) []float64 {
	ears := make([]float64, frames)
	for i := range ears {
		ears[i] = 0.3
	}
	if blinks == 0 {
		return ears
	}
	gap := frames / (blinks + 1)
	for b := 1; b <= blinks; b++ {
		at := b * gap
		for j := 0; j < 3 && at+j < frames-1; j++ {
			ears[at+j] = 0.1
		}
	}
	return ears
}

func TestDetectorAnalyze(t *testing.T) {
	Convey("Given a liveness detector with default configuration", t, func() {
		det := liveness.NewDetector()
		ctx := context.Background()

		Convey("When analyzing a natural blink pattern", func() {
			// 10 blinks over 30 seconds at 30 fps = 20 BPM.
			src := fixture.NewFrameSeq(fixture.EARFrames(blinkPattern(900, 10), 30)...)
			score, stats, err := det.Analyze(ctx, src)

			Convey("Then the score should be valid and natural", func() {
				So(err, ShouldBeNil)
				So(score.Valid, ShouldBeTrue)
				So(score.Modality, ShouldEqual, fusion.ModalityLiveness)
				So(score.StrongTell, ShouldBeFalse)
				So(score.Score, ShouldEqual, 0.85)
				So(stats.TotalBlinks, ShouldEqual, 10)
				So(stats.RateBPM, ShouldBeBetween, 10, 40)
			})
		})

		Convey("When the stream has no blinks at all", func() {
			src := fixture.NewFrameSeq(fixture.EARFrames(blinkPattern(900, 0), 30)...)
			score, stats, err := det.Analyze(ctx, src)

			Convey("Then the frozen-face strong tell should fire", func() {
				So(err, ShouldBeNil)
				So(score.Valid, ShouldBeTrue)
				So(score.StrongTell, ShouldBeTrue)
				So(score.Score, ShouldEqual, 0.20)
				So(stats.TotalBlinks, ShouldEqual, 0)
			})
		})

		Convey("When the stream glitches with very frequent blinks", func() {
			// 40 blinks in ~20 seconds = ~120 BPM.
			src := fixture.NewFrameSeq(fixture.EARFrames(blinkPattern(600, 40), 30)...)
			score, stats, err := det.Analyze(ctx, src)

			Convey("Then the glitching strong tell should fire", func() {
				So(err, ShouldBeNil)
				So(score.Valid, ShouldBeTrue)
				So(score.StrongTell, ShouldBeTrue)
				So(score.Score, ShouldEqual, 0.15)
				So(stats.RateBPM, ShouldBeGreaterThan, 60)
			})
		})

		Convey("When doubling elapsed time with the same blink count", func() {
			ears := blinkPattern(900, 8)
			srcA := fixture.NewFrameSeq(fixture.EARFrames(ears, 30)...)
			srcB := fixture.NewFrameSeq(fixture.EARFrames(ears, 15)...)

			_, statsA, errA := det.Analyze(ctx, srcA)
			_, statsB, errB := det.Analyze(ctx, srcB)

			Convey("Then the BPM should halve", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(statsA.TotalBlinks, ShouldEqual, statsB.TotalBlinks)
				So(statsB.RateBPM, ShouldAlmostEqual, statsA.RateBPM/2, 1e-9)
			})
		})

		Convey("When most frames have no detected face", func() {
			ears := make([]float64, 100)
			for i := range ears {
				ears[i] = fixture.NoFace
			}
			// Only 20 face frames out of 100 — below the 30% floor.
			for i := 0; i < 20; i++ {
				ears[i*5] = 0.3
			}
			src := fixture.NewFrameSeq(fixture.EARFrames(ears, 30)...)
			score, stats, err := det.Analyze(ctx, src)

			Convey("Then the modality should be invalid for insufficient signal", func() {
				So(err, ShouldBeNil)
				So(score.Valid, ShouldBeFalse)
				So(score.Reason, ShouldContainSubstring, "face coverage")
				So(stats.TotalFrames, ShouldEqual, 100)
				So(stats.FaceFrames, ShouldEqual, 20)
			})
		})

		Convey("When the stream is empty", func() {
			src := fixture.NewFrameSeq()
			score, _, err := det.Analyze(ctx, src)

			Convey("Then the modality should be invalid", func() {
				So(err, ShouldBeNil)
				So(score.Valid, ShouldBeFalse)
			})
		})

		Convey("When the rate falls in a straddling band", func() {
			bandDet := liveness.NewDetector()
			// 4 blinks over 32 seconds at 30 fps = 7.5 BPM, inside 5-10.
			src := fixture.NewFrameSeq(fixture.EARFrames(blinkPattern(960, 4), 30)...)
			score, stats, err := bandDet.Analyze(ctx, src)

			Convey("Then the score should interpolate between band boundaries", func() {
				So(err, ShouldBeNil)
				So(score.Valid, ShouldBeTrue)
				So(score.StrongTell, ShouldBeFalse)
				So(stats.RateBPM, ShouldBeBetween, 5, 10)
				So(score.Score, ShouldBeBetween, 0.20, 0.85)
			})
		})
	})
}

func TestAverageEAR(t *testing.T) {
	Convey("Given synthetic landmark meshes", t, func() {
		Convey("When the mesh encodes a known EAR", func() {
			ear, ok := liveness.AverageEAR(fixture.MeshWithEAR(0.25))

			Convey("Then the computed EAR should match", func() {
				So(ok, ShouldBeTrue)
				So(ear, ShouldAlmostEqual, 0.25, 1e-9)
			})
		})

		Convey("When the landmark set is too small", func() {
			_, ok := liveness.AverageEAR(landmark.Set{})

			Convey("Then it should report no signal", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}
