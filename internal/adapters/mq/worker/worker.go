// Package worker runs the analysis consumers that drain the scan queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/veridianlabs/veridian/internal/domain/scan"
	"github.com/veridianlabs/veridian/pkg/logger"
	"github.com/veridianlabs/veridian/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	poolShutdownTimeout     = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = scan.Job

// Analyzer executes one queued scan end to end, including recording the
// outcome and releasing the in-flight fingerprint.
type Analyzer interface {
	Process(ctx context.Context, job Job) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// Worker consumes jobs until its context is canceled or the queue closes.
type Worker struct {
	queue    Queue
	analyzer Analyzer
	name     string

	shutdown chan struct{}
	done     chan struct{}
	log      logger.Logger
}

// New creates a worker.
func New(q Queue, analyzer Analyzer, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		analyzer: analyzer,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = logger.Named(w.name)
	return w
}

// Run starts the consume loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	start := time.Now()
	err := w.analyzer.Process(ctx, job)
	metrics.RecordWorkerJobLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordWorkerJobFailure()
		w.log.Error(ctx, "scan failed",
			logger.String("job_id", job.ID),
			logger.String("fingerprint", job.Fingerprint),
			logger.Error(err))
	}
}

// Shutdown stops the worker and waits for the current job to finish.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

// Pool manages a fixed set of workers.
type Pool struct {
	workers []*Worker
	queue   Queue
	log     logger.Logger
}

// NewPool creates a pool. A non-positive count uses a CPU-derived default.
func NewPool(count int, q Queue, analyzer Analyzer) *Pool {
	if count < 1 {
		count = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*Worker, count),
		queue:   q,
		log:     logger.Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = New(q, analyzer, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(count)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.log.Error(ctx, "closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.log.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
