package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/veridianlabs/veridian/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a metrics manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(metrics.WithRegistry(reg), metrics.WithNamespace("test"))

		Convey("Then it should construct without panicking", func() {
			So(m, ShouldNotBeNil)
		})

		Convey("And the registry should gather without error", func() {
			families, err := reg.Gather()
			So(err, ShouldBeNil)
			So(families, ShouldNotBeNil)
		})
	})

	Convey("Given the global helpers", t, func() {
		Convey("When recording pipeline metrics", func() {
			So(func() {
				metrics.RecordAnalysis("image")
				metrics.RecordVerdict("AUTHENTIC")
				metrics.RecordAnalysisLatency("image", 12.5)
				metrics.RecordDetectorLatency("frequency", 4.2)
				metrics.RecordDetectorInvalid("liveness", "insufficient_signal")
				metrics.RecordDetectorFailure("compression")
			}, ShouldNotPanic)
		})

		Convey("When recording cache and queue metrics", func() {
			So(func() {
				metrics.RecordCacheHit()
				metrics.RecordCacheMiss()
				metrics.RecordCacheCorruption()
				metrics.RecordCacheWriteError()
				metrics.UpdateQueueSize(3)
				metrics.UpdateQueueCapacity(100)
				metrics.RecordQueueEnqueue()
				metrics.RecordQueueRejection()
				metrics.RecordInflightDuplicate()
				metrics.UpdateWorkerCount(4)
				metrics.RecordWorkerJobLatency(80)
				metrics.RecordWorkerJobFailure()
			}, ShouldNotPanic)
		})

		Convey("Then the shared registry should be reachable", func() {
			So(metrics.GetRegistry(), ShouldNotBeNil)
		})
	})
}
