package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/veridianlabs/veridian/internal/adapters/mq/queue"
	"github.com/veridianlabs/veridian/internal/adapters/mq/worker"
	"github.com/veridianlabs/veridian/internal/domain/media"
	"github.com/veridianlabs/veridian/internal/domain/scan"
	"github.com/veridianlabs/veridian/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// recordingAnalyzer collects processed fingerprints.
type recordingAnalyzer struct {
	mu        sync.Mutex
	processed []string
	fail      bool
}

func (a *recordingAnalyzer) Process(_ context.Context, job worker.Job) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.processed = append(a.processed, job.Fingerprint)
	if a.fail {
		return errors.New("analysis failed")
	}
	return nil
}

func (a *recordingAnalyzer) seen() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.processed...)
}

func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestWorker(t *testing.T) {
	Convey("Given a worker on a queue", t, func() {
		ctx := context.Background()

		Convey("It processes queued jobs", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(8))
			analyzer := &recordingAnalyzer{}
			w := worker.New(q, analyzer)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go w.Run(runCtx)

			So(q.Enqueue(ctx, scan.NewJob("/tmp/a.png", media.KindImage, "fp-a", "")), ShouldBeTrue)
			So(q.Enqueue(ctx, scan.NewJob("/tmp/b.png", media.KindImage, "fp-b", "")), ShouldBeTrue)

			So(waitFor(func() bool { return len(analyzer.seen()) == 2 }, 2*time.Second), ShouldBeTrue)
			So(analyzer.seen(), ShouldResemble, []string{"fp-a", "fp-b"})

			So(q.Close(), ShouldBeNil)
		})

		Convey("A failing analyzer does not stop the loop", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(8))
			analyzer := &recordingAnalyzer{fail: true}
			w := worker.New(q, analyzer)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go w.Run(runCtx)

			q.Enqueue(ctx, scan.NewJob("", media.KindAudio, "fp-1", ""))
			q.Enqueue(ctx, scan.NewJob("", media.KindAudio, "fp-2", ""))

			So(waitFor(func() bool { return len(analyzer.seen()) == 2 }, 2*time.Second), ShouldBeTrue)

			So(q.Close(), ShouldBeNil)
		})

		Convey("Shutdown returns once the worker stops", func() {
			q := queue.NewInMemoryQueue()
			w := worker.New(q, &recordingAnalyzer{})

			go w.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			So(w.Shutdown(shutdownCtx), ShouldBeNil)

			So(q.Close(), ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a worker pool", t, func() {
		ctx := context.Background()

		Convey("All queued jobs are processed across workers", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(64))
			analyzer := &recordingAnalyzer{}
			p := worker.NewPool(4, q, analyzer)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			p.Start(runCtx)

			const jobs = 20
			for i := 0; i < jobs; i++ {
				So(q.Enqueue(ctx, scan.NewJob("", media.KindImage, fmt.Sprintf("fp-%d", i), "")), ShouldBeTrue)
			}

			So(waitFor(func() bool { return len(analyzer.seen()) == jobs }, 3*time.Second), ShouldBeTrue)
		})

		Convey("Shutdown drains the queue before returning", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(64))
			analyzer := &recordingAnalyzer{}
			p := worker.NewPool(2, q, analyzer)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			p.Start(runCtx)

			for i := 0; i < 10; i++ {
				q.Enqueue(ctx, scan.NewJob("", media.KindImage, fmt.Sprintf("fp-%d", i), ""))
			}

			So(p.Shutdown(ctx), ShouldBeNil)
			So(len(analyzer.seen()), ShouldEqual, 10)
		})
	})
}
