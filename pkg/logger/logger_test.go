package logger_test

import (
	"context"
	"testing"

	"github.com/veridianlabs/veridian/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("When fetching the global logger", func() {
			l := logger.Get()

			Convey("Then it should not be nil", func() {
				So(l, ShouldNotBeNil)
			})

			Convey("And logging at all levels should not panic", func() {
				ctx := context.Background()
				So(func() {
					l.Debug(ctx, "debug msg", logger.String("k", "v"))
					l.Info(ctx, "info msg", logger.Int("n", 1))
					l.Warn(ctx, "warn msg", logger.Float64("f", 1.5))
					l.Error(ctx, "error msg", logger.Bool("b", true))
				}, ShouldNotPanic)
			})
		})

		Convey("When creating a named logger", func() {
			l := logger.Named("cache")

			Convey("Then it should return a distinct logger", func() {
				So(l, ShouldNotBeNil)
				So(func() { l.Info(context.Background(), "named msg") }, ShouldNotPanic)
			})
		})

		Convey("When setting the level from a string", func() {
			Convey("Then known levels should parse", func() {
				So(logger.SetLevelString("debug"), ShouldBeNil)
				So(logger.SetLevelString("info"), ShouldBeNil)
				So(logger.SetLevelString("WARN"), ShouldBeNil)
				So(logger.SetLevelString("error"), ShouldBeNil)
			})

			Convey("And unknown levels should error", func() {
				So(logger.SetLevelString("verbose"), ShouldNotBeNil)
			})
		})
	})
}
