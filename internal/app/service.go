// Package service wires the detectors, fusion engine, cache, and async scan
// pipeline into the operations the HTTP API exposes.
package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/veridianlabs/veridian/internal/adapters/cache"
	"github.com/veridianlabs/veridian/internal/adapters/history"
	scanqueue "github.com/veridianlabs/veridian/internal/adapters/mq/queue"
	workerpool "github.com/veridianlabs/veridian/internal/adapters/mq/worker"
	"github.com/veridianlabs/veridian/internal/config"
	"github.com/veridianlabs/veridian/internal/domain/compression"
	"github.com/veridianlabs/veridian/internal/domain/extract"
	"github.com/veridianlabs/veridian/internal/domain/frequency"
	"github.com/veridianlabs/veridian/internal/domain/fusion"
	"github.com/veridianlabs/veridian/internal/domain/inflight"
	"github.com/veridianlabs/veridian/internal/domain/landmark"
	"github.com/veridianlabs/veridian/internal/domain/liveness"
	"github.com/veridianlabs/veridian/internal/domain/media"
	"github.com/veridianlabs/veridian/internal/domain/scan"
	"github.com/veridianlabs/veridian/pkg/logger"
	"github.com/veridianlabs/veridian/pkg/metrics"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig applies a loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLandmarkDetector injects the facial landmark backend used for video
// liveness. Without one, the liveness modality reports invalid.
func WithLandmarkDetector(det landmark.Detector) Option {
	return func(s *Service) {
		s.landmarks = det
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// Service implements the API dependencies for the triage system.
type Service struct {
	mu      sync.RWMutex
	started bool

	cfg       *config.Config
	landmarks landmark.Detector

	liveness *liveness.Detector
	freq     *frequency.Scorer
	ela      *compression.Scorer
	fuser    *fusion.Engine

	cache   *cache.Cache
	tracker inflight.Tracker
	queue   *scanqueue.InMemoryQueue
	pool    *workerpool.Pool
	history history.Store
	poolCtx context.CancelFunc
	log     logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{cfg: config.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the detector stack and launches the scan workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.log == nil {
		s.log = logger.Named("service")
	}

	s.liveness = liveness.NewDetector(
		liveness.WithEARThreshold(s.cfg.EARThreshold),
		liveness.WithDebounceFrames(s.cfg.BlinkConsecFrames),
		liveness.WithMinFaceCoverage(s.cfg.MinFaceCoverage),
		liveness.WithRateBands(s.cfg.BlinkNaturalMin, s.cfg.BlinkNaturalMax, s.cfg.BlinkHardMin, s.cfg.BlinkHardMax),
	)
	s.freq = frequency.NewScorer(
		frequency.WithMaskSize(s.cfg.FreqMaskSize),
		frequency.WithImageRange(s.cfg.FreqImageMin, s.cfg.FreqImageMax),
		frequency.WithCutoff(s.cfg.FreqCutoffHz, s.cfg.FreqDBFloor),
		frequency.WithSTFT(s.cfg.FreqWindowSize, s.cfg.FreqHopSize),
	)
	s.ela = compression.NewScorer(
		compression.WithQuality(s.cfg.ELAQuality),
		compression.WithScoreMax(s.cfg.ELAScoreMax),
	)
	s.fuser = fusion.New(
		fusion.WithWeights(s.cfg.FusionWeights),
		fusion.WithThresholds(s.cfg.VerdictFake, s.cfg.VerdictSuspicious, s.cfg.VerdictLikely),
	)

	c, err := cache.New(s.cfg.CacheDir,
		cache.WithTTL(time.Duration(s.cfg.CacheTTLSeconds)*time.Second))
	if err != nil {
		return fmt.Errorf("open result cache: %w", err)
	}
	s.cache = c
	s.tracker = inflight.New(inflight.WithCapacity(s.cfg.InflightSize))
	s.history = history.NewRingStore(history.WithCapacity(s.cfg.HistorySize))
	s.queue = scanqueue.NewInMemoryQueue(scanqueue.WithCapacity(s.cfg.ScanQueueSize))
	s.pool = workerpool.NewPool(s.cfg.WorkerCount, s.queue, s)

	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.poolCtx = cancel
	s.pool.Start(poolCtx)

	s.started = true
	s.log.Info(ctx, "triage service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("queue_size", s.cfg.ScanQueueSize),
		logger.Bool("landmarks", s.landmarks != nil),
	)
	return nil
}

// Stop drains the workers and releases the cache.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.pool.Shutdown(ctx); err != nil {
		s.log.Error(ctx, "worker pool shutdown", logger.Error(err))
	}
	if s.poolCtx != nil {
		s.poolCtx()
	}
	if err := s.cache.Close(); err != nil {
		s.log.Error(ctx, "closing cache", logger.Error(err))
	}
	s.started = false
	s.log.Info(ctx, "triage service stopped")
}

// Analyze produces the verdict for an asset, serving repeated content from
// the cache. hint is optional extracted text (e.g. OCR output) checked for
// known generator watermarks.
func (s *Service) Analyze(ctx context.Context, asset *media.Asset, hint string) (*fusion.Result, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}

	start := time.Now()
	kind := string(asset.Kind())
	metrics.RecordAnalysis(kind)

	result, err := s.cache.GetOrCompute(ctx, asset.Fingerprint(), func(ctx context.Context) (*fusion.Result, error) {
		return s.compute(ctx, asset, hint)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordVerdict(string(result.Verdict))
	metrics.RecordAnalysisLatency(kind, float64(time.Since(start).Milliseconds()))
	return result, nil
}

// Submit queues an asynchronous scan of a local file. The returned job
// carries the fingerprint used to poll for the result. hint is optional
// extracted text checked for known generator watermarks at analysis time.
func (s *Service) Submit(ctx context.Context, path string, kind media.Kind, hint string) (scan.Job, error) {
	if !s.running() {
		return scan.Job{}, ErrNotStarted
	}

	asset, err := media.NewAssetFromFile(kind, path)
	if err != nil {
		return scan.Job{}, err
	}

	if s.tracker.Begin(ctx, asset.Fingerprint()) {
		metrics.RecordInflightDuplicate()
		return scan.Job{}, fmt.Errorf("%w: %s", ErrInFlight, asset.Fingerprint())
	}
	job := scan.NewJob(path, kind, asset.Fingerprint(), hint)
	if !s.queue.Enqueue(ctx, job) {
		s.tracker.End(ctx, asset.Fingerprint())
		return scan.Job{}, ErrQueueFull
	}
	return job, nil
}

// Process runs one queued scan. It implements the worker pool's Analyzer.
func (s *Service) Process(ctx context.Context, job scan.Job) error {
	defer s.tracker.End(ctx, job.Fingerprint)

	start := time.Now()
	rec := history.Record{
		JobID:       job.ID,
		Fingerprint: job.Fingerprint,
		Kind:        string(job.Kind),
		Path:        job.Path,
	}

	asset, err := media.NewAssetFromFile(job.Kind, job.Path)
	if err == nil {
		_, rec.Cached = s.cache.Get(ctx, job.Fingerprint)
		var result *fusion.Result
		result, err = s.Analyze(ctx, asset, job.WatermarkHint)
		if err == nil {
			rec.Verdict = result.Verdict
			rec.Confidence = result.Confidence
			rec.ThreatLevel = result.ThreatLevel
		}
	}
	if err != nil {
		rec.Error = err.Error()
	}
	rec.Duration = time.Since(start)

	if herr := s.history.Add(ctx, rec); herr != nil {
		s.log.Warn(ctx, "recording scan history", logger.Error(herr))
	}
	return err
}

// Result returns the cached verdict for a fingerprint.
func (s *Service) Result(ctx context.Context, fingerprint string) (*fusion.Result, bool) {
	if !s.running() {
		return nil, false
	}
	return s.cache.Get(ctx, fingerprint)
}

// History lists recent scans, most recent first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Record, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	if limit > s.cfg.MaxHistoryLimit {
		limit = s.cfg.MaxHistoryLimit
	}
	return s.history.Recent(ctx, limit)
}

// Job returns the recorded outcome of an async scan.
func (s *Service) Job(ctx context.Context, jobID string) (history.Record, error) {
	if !s.running() {
		return history.Record{}, ErrNotStarted
	}
	return s.history.ByJobID(ctx, jobID)
}

// Stats aggregates service activity for the stats endpoint.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"worker_count": s.cfg.WorkerCount,
		"queue_size":   s.cfg.ScanQueueSize,
	}
	if s.started {
		stats["queue_length"] = s.queue.Len(ctx)
		stats["inflight"] = s.tracker.Size()
		stats["history"] = s.history.Stats(ctx)
	}
	return stats
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// compute runs the detectors applicable to the asset kind and fuses their
// scores. Extractor failure is fatal; individual detector failures degrade
// to invalid modalities.
func (s *Service) compute(ctx context.Context, asset *media.Asset, hint string) (*fusion.Result, error) {
	var (
		scores []fusion.ModalityScore
		expl   fusion.Explainability
		err    error
	)

	switch asset.Kind() {
	case media.KindImage:
		scores, expl, err = s.computeImage(ctx, asset)
	case media.KindAudio:
		scores, expl, err = s.computeAudio(ctx, asset)
	case media.KindVideo:
		scores, expl, err = s.computeVideo(ctx, asset)
	default:
		return nil, fmt.Errorf("%w: %q", media.ErrUnknownKind, asset.Kind())
	}
	if err != nil {
		return nil, err
	}

	if wm, matched := s.watermarkScore(hint); matched {
		scores = append(scores, wm)
	}
	return s.fuser.Fuse(scores, expl), nil
}

func (s *Service) computeImage(ctx context.Context, asset *media.Asset) ([]fusion.ModalityScore, fusion.Explainability, error) {
	img, err := extract.Image(asset)
	if err != nil {
		return nil, fusion.Explainability{}, err
	}
	luma := extract.Luma(img)

	var (
		freqScore, elaScore fusion.ModalityScore
		freqHeat, elaHeat   *image.Gray
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		freqScore = s.runDetector(ctx, fusion.ModalityFrequency, func() fusion.ModalityScore {
			score, heat := s.freq.Image(luma)
			freqHeat = heat
			return score
		})
		return nil
	})
	g.Go(func() error {
		elaScore = s.runDetector(ctx, fusion.ModalityCompression, func() fusion.ModalityScore {
			score, heat := s.ela.Image(img)
			elaHeat = heat
			return score
		})
		return nil
	})
	_ = g.Wait()

	expl := fusion.Explainability{Heatmaps: map[string]string{}}
	if freqScore.Valid && freqHeat != nil {
		expl.Heatmaps[fusion.ModalityFrequency] = encodeHeatmap(freqHeat)
	}
	if elaScore.Valid && elaHeat != nil {
		expl.Heatmaps[fusion.ModalityCompression] = encodeHeatmap(elaHeat)
	}
	return []fusion.ModalityScore{freqScore, elaScore}, expl, nil
}

func (s *Service) computeAudio(ctx context.Context, asset *media.Asset) ([]fusion.ModalityScore, fusion.Explainability, error) {
	clip, err := extract.Audio(asset)
	if err != nil {
		return nil, fusion.Explainability{}, err
	}
	score := s.runDetector(ctx, fusion.ModalityFrequency, func() fusion.ModalityScore {
		return s.freq.Audio(clip)
	})
	return []fusion.ModalityScore{score}, fusion.Explainability{}, nil
}

func (s *Service) computeVideo(ctx context.Context, asset *media.Asset) ([]fusion.ModalityScore, fusion.Explainability, error) {
	vopts := extract.VideoOptions{FFmpegPath: s.cfg.FFmpegPath, FFprobePath: s.cfg.FFprobePath}

	var (
		liveScore, freqScore fusion.ModalityScore
		stats                liveness.Stats
	)

	if s.landmarks == nil {
		liveScore = fusion.Invalid(fusion.ModalityLiveness, "no landmark detector configured")
	} else {
		src, _, err := extract.Video(ctx, asset, s.landmarks, vopts)
		if err != nil {
			return nil, fusion.Explainability{}, err
		}
		defer src.Close()
		liveScore = s.runDetector(ctx, fusion.ModalityLiveness, func() fusion.ModalityScore {
			score, st, lerr := s.liveness.Analyze(ctx, src)
			if lerr != nil {
				metrics.RecordDetectorFailure(fusion.ModalityLiveness)
				return fusion.Invalid(fusion.ModalityLiveness, lerr.Error())
			}
			stats = st
			return score
		})
	}

	freqScore = s.runDetector(ctx, fusion.ModalityFrequency, func() fusion.ModalityScore {
		clip, aerr := extract.AudioFromVideo(ctx, asset, s.cfg.FFmpegPath)
		if aerr != nil {
			return fusion.Invalid(fusion.ModalityFrequency, "no decodable audio track")
		}
		return s.freq.Audio(clip)
	})

	expl := fusion.Explainability{}
	if liveScore.Valid {
		bpm := stats.RateBPM
		blinks := stats.TotalBlinks
		expl.BlinkRateBPM = &bpm
		expl.TotalBlinks = &blinks
	}
	return []fusion.ModalityScore{liveScore, freqScore}, expl, nil
}

// runDetector bounds one detector run by the configured timeout. A timeout
// degrades the modality to invalid; the stray computation is abandoned.
func (s *Service) runDetector(ctx context.Context, modality string, fn func() fusion.ModalityScore) fusion.ModalityScore {
	timeout := time.Duration(s.cfg.DetectorTimeoutMS) * time.Millisecond
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan fusion.ModalityScore, 1)
	go func() { done <- fn() }()

	select {
	case score := <-done:
		metrics.RecordDetectorLatency(modality, float64(time.Since(start).Milliseconds()))
		if !score.Valid {
			metrics.RecordDetectorInvalid(modality, score.Reason)
		}
		return score
	case <-tctx.Done():
		metrics.RecordDetectorInvalid(modality, "timeout")
		return fusion.Invalid(modality, "detector timed out")
	}
}

// watermarkScore checks caller-supplied extracted text against the known
// generator watermark terms.
func (s *Service) watermarkScore(hint string) (fusion.ModalityScore, bool) {
	if hint == "" {
		return fusion.ModalityScore{}, false
	}
	lowered := strings.ToLower(hint)
	for _, term := range s.cfg.WatermarkTerms {
		if term != "" && strings.Contains(lowered, strings.ToLower(term)) {
			return fusion.ModalityScore{
				Modality:   fusion.ModalityWatermark,
				Score:      1,
				Min:        0,
				Max:        1,
				Valid:      true,
				Direction:  fusion.HigherIsAnomalous,
				StrongTell: true,
				Reason:     fmt.Sprintf("watermark term %q", term),
			}, true
		}
	}
	return fusion.ModalityScore{}, false
}

// encodeHeatmap renders a grayscale heatmap as base64 JPEG for transport.
func encodeHeatmap(img *image.Gray) string {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
