package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/veridianlabs/veridian/internal/adapters/cache"
	"github.com/veridianlabs/veridian/internal/domain/fusion"
	"github.com/veridianlabs/veridian/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func sampleResult(verdict fusion.Verdict, confidence float64) *fusion.Result {
	return &fusion.Result{
		Verdict:     verdict,
		Confidence:  &confidence,
		ThreatLevel: verdict.ThreatLevel(),
		Modalities: []fusion.Contribution{
			{Name: fusion.ModalityFrequency, Score: 140, Valid: true, Weight: 1, Normalized: confidence},
		},
	}
}

func TestCache(t *testing.T) {
	Convey("Given an in-memory result cache", t, func() {
		ctx := context.Background()
		c, err := cache.New("")
		So(err, ShouldBeNil)
		Reset(func() { _ = c.Close() })

		Convey("A missing fingerprint is a miss", func() {
			_, ok := c.Get(ctx, "unknown")

			So(ok, ShouldBeFalse)
		})

		Convey("Put then Get round-trips the result", func() {
			want := sampleResult(fusion.VerdictAuthentic, 0.92)
			So(c.Put(ctx, "fp-1", want), ShouldBeNil)

			got, ok := c.Get(ctx, "fp-1")

			So(ok, ShouldBeTrue)
			So(got.Verdict, ShouldEqual, fusion.VerdictAuthentic)
			So(*got.Confidence, ShouldAlmostEqual, 0.92)
			So(got.ThreatLevel, ShouldEqual, "NONE")
			So(got.Modalities, ShouldHaveLength, 1)
			So(got.Modalities[0].Name, ShouldEqual, fusion.ModalityFrequency)
		})

		Convey("An inconclusive result keeps its nil confidence", func() {
			want := &fusion.Result{
				Verdict:     fusion.VerdictInconclusive,
				ThreatLevel: "UNKNOWN",
			}
			So(c.Put(ctx, "fp-inc", want), ShouldBeNil)

			got, ok := c.Get(ctx, "fp-inc")

			So(ok, ShouldBeTrue)
			So(got.Confidence, ShouldBeNil)
		})

		Convey("GetOrCompute computes on miss and caches for the next call", func() {
			calls := 0
			compute := func(context.Context) (*fusion.Result, error) {
				calls++
				return sampleResult(fusion.VerdictSuspicious, 0.4), nil
			}

			first, err := c.GetOrCompute(ctx, "fp-2", compute)
			So(err, ShouldBeNil)
			So(first.Verdict, ShouldEqual, fusion.VerdictSuspicious)

			second, err := c.GetOrCompute(ctx, "fp-2", compute)
			So(err, ShouldBeNil)
			So(second.Verdict, ShouldEqual, fusion.VerdictSuspicious)
			So(calls, ShouldEqual, 1)
		})

		Convey("GetOrCompute propagates compute failures without caching", func() {
			boom := errors.New("decode failed")
			_, err := c.GetOrCompute(ctx, "fp-3", func(context.Context) (*fusion.Result, error) {
				return nil, boom
			})
			So(err, ShouldEqual, boom)

			_, ok := c.Get(ctx, "fp-3")
			So(ok, ShouldBeFalse)
		})

		Convey("Concurrent callers for one fingerprint share a single computation", func() {
			var calls int
			var mu sync.Mutex
			compute := func(context.Context) (*fusion.Result, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				return sampleResult(fusion.VerdictFake, 0.1), nil
			}

			const callers = 16
			var wg sync.WaitGroup
			results := make([]*fusion.Result, callers)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					r, err := c.GetOrCompute(ctx, "fp-shared", compute)
					if err == nil {
						results[i] = r
					}
				}(i)
			}
			wg.Wait()

			So(calls, ShouldEqual, 1)
			for _, r := range results {
				So(r, ShouldNotBeNil)
				So(r.Verdict, ShouldEqual, fusion.VerdictFake)
			}
		})
	})
}

func TestCacheClosed(t *testing.T) {
	Convey("Given a closed cache", t, func() {
		ctx := context.Background()
		c, err := cache.New("")
		So(err, ShouldBeNil)
		So(c.Close(), ShouldBeNil)

		Convey("Close is idempotent", func() {
			So(c.Close(), ShouldBeNil)
		})

		Convey("Put is rejected", func() {
			err := c.Put(ctx, "fp-late", sampleResult(fusion.VerdictAuthentic, 0.9))

			So(err, ShouldWrap, cache.ErrClosed)
		})

		Convey("GetOrCompute is rejected without running compute", func() {
			calls := 0
			_, err := c.GetOrCompute(ctx, "fp-late", func(context.Context) (*fusion.Result, error) {
				calls++
				return sampleResult(fusion.VerdictAuthentic, 0.9), nil
			})

			So(err, ShouldWrap, cache.ErrClosed)
			So(calls, ShouldEqual, 0)
		})

		Convey("Get reports a miss", func() {
			_, ok := c.Get(ctx, "fp-late")

			So(ok, ShouldBeFalse)
		})
	})
}

func TestCacheTTL(t *testing.T) {
	Convey("Given a cache with an expiry configured", t, func() {
		ctx := context.Background()
		c, err := cache.New("", cache.WithTTL(time.Hour))
		So(err, ShouldBeNil)
		Reset(func() { _ = c.Close() })

		Convey("Entries are served before expiry", func() {
			So(c.Put(ctx, "fp-ttl", sampleResult(fusion.VerdictAuthentic, 0.9)), ShouldBeNil)

			got, ok := c.Get(ctx, "fp-ttl")

			So(ok, ShouldBeTrue)
			So(got.Verdict, ShouldEqual, fusion.VerdictAuthentic)
		})
	})
}

func TestCacheCorruption(t *testing.T) {
	Convey("Given a persisted entry overwritten with garbage", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		c, err := cache.New(dir)
		So(err, ShouldBeNil)
		So(c.Put(ctx, "fp-bad", sampleResult(fusion.VerdictAuthentic, 0.9)), ShouldBeNil)
		So(c.Close(), ShouldBeNil)

		bopts := badger.DefaultOptions(dir)
		bopts.Logger = nil
		db, err := badger.Open(bopts)
		So(err, ShouldBeNil)
		So(db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte("result:fp-bad"), []byte("{not json"))
		}), ShouldBeNil)
		So(db.Close(), ShouldBeNil)

		reopened, err := cache.New(dir)
		So(err, ShouldBeNil)
		Reset(func() { _ = reopened.Close() })

		Convey("Get drops the entry and reports a miss", func() {
			_, ok := reopened.Get(ctx, "fp-bad")

			So(ok, ShouldBeFalse)

			_, ok = reopened.Get(ctx, "fp-bad")
			So(ok, ShouldBeFalse)
		})

		Convey("GetOrCompute recomputes and stores a fresh result", func() {
			calls := 0
			got, err := reopened.GetOrCompute(ctx, "fp-bad", func(context.Context) (*fusion.Result, error) {
				calls++
				return sampleResult(fusion.VerdictSuspicious, 0.4), nil
			})

			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 1)
			So(got.Verdict, ShouldEqual, fusion.VerdictSuspicious)

			cached, ok := reopened.Get(ctx, "fp-bad")
			So(ok, ShouldBeTrue)
			So(cached.Verdict, ShouldEqual, fusion.VerdictSuspicious)
		})
	})
}

func TestCachePersistence(t *testing.T) {
	Convey("Given a disk-backed cache", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		c, err := cache.New(dir)
		So(err, ShouldBeNil)
		So(c.Put(ctx, "fp-persist", sampleResult(fusion.VerdictLikelyAuthentic, 0.7)), ShouldBeNil)
		So(c.Close(), ShouldBeNil)

		Convey("Results survive a reopen", func() {
			reopened, err := cache.New(dir)
			So(err, ShouldBeNil)
			Reset(func() { _ = reopened.Close() })

			got, ok := reopened.Get(ctx, "fp-persist")

			So(ok, ShouldBeTrue)
			So(got.Verdict, ShouldEqual, fusion.VerdictLikelyAuthentic)
		})
	})
}
