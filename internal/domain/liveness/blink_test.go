package liveness_test

import (
	"testing"

	"github.com/veridianlabs/veridian/internal/domain/liveness"
	. "github.com/smartystreets/goconvey/convey"
)

func feed(m *liveness.Machine, ears []float64) []liveness.BlinkEvent {
	var events []liveness.BlinkEvent
	for _, ear := range ears {
		if ev, ok := m.Observe(ear); ok {
			events = append(events, ev)
		}
	}
	if ev, ok := m.Finish(); ok {
		events = append(events, ev)
	}
	return events
}

func TestMachine(t *testing.T) {
	Convey("Given a blink machine with threshold 0.21 and debounce 3", t, func() {
		m := liveness.NewMachine(0.21, 3)

		Convey("When every sample is above the threshold", func() {
			events := feed(m, []float64{0.3, 0.31, 0.29, 0.3, 0.32, 0.3})

			Convey("Then no blink should be emitted", func() {
				So(events, ShouldBeEmpty)
			})
		})

		Convey("When exactly debounce-many low samples precede a high one", func() {
			events := feed(m, []float64{0.3, 0.1, 0.1, 0.1, 0.3})

			Convey("Then exactly one blink should be emitted", func() {
				So(events, ShouldHaveLength, 1)
				So(events[0].StartFrame, ShouldEqual, 1)
				So(events[0].Frames, ShouldEqual, 3)
			})
		})

		Convey("When the closing run is one frame short of the debounce", func() {
			events := feed(m, []float64{0.3, 0.1, 0.1, 0.3, 0.3})

			Convey("Then no blink should be emitted", func() {
				So(events, ShouldBeEmpty)
			})
		})

		Convey("When the documented reference sequence is fed", func() {
			// EAR_THRESHOLD=0.21, CONSEC_FRAMES=3.
			events := feed(m, []float64{0.30, 0.30, 0.15, 0.12, 0.14, 0.31, 0.30})

			Convey("Then exactly one blink spans frames 2-4", func() {
				So(events, ShouldHaveLength, 1)
				So(events[0].StartFrame, ShouldEqual, 2)
				So(events[0].Frames, ShouldEqual, 3)
			})
		})

		Convey("When the stream ends inside a long closure", func() {
			events := feed(m, []float64{0.3, 0.1, 0.1, 0.1, 0.1})

			Convey("Then the debounced trailing closure should still count", func() {
				So(events, ShouldHaveLength, 1)
				So(events[0].StartFrame, ShouldEqual, 1)
				So(events[0].Frames, ShouldEqual, 4)
			})
		})

		Convey("When the stream ends inside a short closure", func() {
			events := feed(m, []float64{0.3, 0.3, 0.1, 0.1})

			Convey("Then the trailing partial closure should be discarded", func() {
				So(events, ShouldBeEmpty)
			})
		})

		Convey("When two separate blinks occur", func() {
			events := feed(m, []float64{0.1, 0.1, 0.1, 0.3, 0.1, 0.1, 0.1, 0.1, 0.3})

			Convey("Then both should be emitted with correct intervals", func() {
				So(events, ShouldHaveLength, 2)
				So(events[0].StartFrame, ShouldEqual, 0)
				So(events[0].Frames, ShouldEqual, 3)
				So(events[1].StartFrame, ShouldEqual, 4)
				So(events[1].Frames, ShouldEqual, 4)
			})
		})
	})
}
