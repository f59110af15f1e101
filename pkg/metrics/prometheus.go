// Package metrics provides Prometheus metrics for the media triage service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus instruments for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Analysis pipeline metrics
	analysesTotal    *prometheus.CounterVec
	verdictsTotal    *prometheus.CounterVec
	analysisLatency  *prometheus.HistogramVec
	detectorLatency  *prometheus.HistogramVec
	detectorInvalid  *prometheus.CounterVec
	detectorFailures *prometheus.CounterVec

	// Cache metrics
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	cacheCorruptions prometheus.Counter
	cacheWriteErrors prometheus.Counter

	// Scan queue metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueRejections  prometheus.Counter
	inflightDropped  prometheus.Counter

	// Worker metrics
	workerCount       prometheus.Gauge
	workerJobLatency  prometheus.Histogram
	workerJobFailures prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "veridian",
		subsystem:        "triage",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.analysesTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "analyses_total",
			Help:      "Total number of completed analyses by asset kind",
		},
		[]string{"kind"},
	)

	m.verdictsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "verdicts_total",
			Help:      "Total number of verdicts issued by level",
		},
		[]string{"verdict"},
	)

	m.analysisLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "analysis_latency_milliseconds",
			Help:      "End-to-end analysis latency in milliseconds by asset kind",
			Buckets:   m.histogramBuckets,
		},
		[]string{"kind"},
	)

	m.detectorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "detector_latency_milliseconds",
			Help:      "Per-detector latency in milliseconds by modality",
			Buckets:   m.histogramBuckets,
		},
		[]string{"modality"},
	)

	m.detectorInvalid = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "detector_invalid_total",
			Help:      "Detector runs that produced no usable signal, by modality and reason",
		},
		[]string{"modality", "reason"},
	)

	m.detectorFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "detector_failures_total",
			Help:      "Detector runs that failed with an error, by modality",
		},
		[]string{"modality"},
	)

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Result cache hits keyed by content fingerprint",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Result cache misses keyed by content fingerprint",
	})

	m.cacheCorruptions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_corruptions_total",
		Help:      "Persisted cache entries that failed to decode and were treated as misses",
	})

	m.cacheWriteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_write_errors_total",
		Help:      "Failed persisted cache writes (result still served to the caller)",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_queue_size",
		Help:      "Current size of the async scan queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_queue_capacity",
		Help:      "Configured capacity of the async scan queue",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_queue_enqueues_total",
		Help:      "Scan jobs accepted onto the queue",
	})

	m.queueRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scan_queue_rejections_total",
		Help:      "Scan jobs rejected due to backpressure or shutdown",
	})

	m.inflightDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "inflight_duplicates_total",
		Help:      "Scan submissions dropped because the fingerprint was already in flight",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of scan workers",
	})

	m.workerJobLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_job_latency_milliseconds",
		Help:      "Scan job processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerJobFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_job_failures_total",
		Help:      "Scan jobs that ended in a fatal analysis error",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated heap bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// Package-level helpers operating on the global manager.

func RecordAnalysis(kind string)       { globalManager.analysesTotal.WithLabelValues(kind).Inc() }
func RecordVerdict(verdict string)     { globalManager.verdictsTotal.WithLabelValues(verdict).Inc() }
func RecordAnalysisLatency(kind string, ms float64) {
	globalManager.analysisLatency.WithLabelValues(kind).Observe(ms)
}

func RecordDetectorLatency(modality string, ms float64) {
	globalManager.detectorLatency.WithLabelValues(modality).Observe(ms)
}

func RecordDetectorInvalid(modality, reason string) {
	globalManager.detectorInvalid.WithLabelValues(modality, reason).Inc()
}

func RecordDetectorFailure(modality string) {
	globalManager.detectorFailures.WithLabelValues(modality).Inc()
}

func RecordCacheHit()        { globalManager.cacheHits.Inc() }
func RecordCacheMiss()       { globalManager.cacheMisses.Inc() }
func RecordCacheCorruption() { globalManager.cacheCorruptions.Inc() }
func RecordCacheWriteError() { globalManager.cacheWriteErrors.Inc() }

func UpdateQueueSize(size int)         { globalManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }
func RecordQueueEnqueue()              { globalManager.queueEnqueues.Inc() }
func RecordQueueRejection()            { globalManager.queueRejections.Inc() }
func RecordInflightDuplicate()         { globalManager.inflightDropped.Inc() }

func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }
func RecordWorkerJobLatency(ms float64) {
	globalManager.workerJobLatency.Observe(ms)
}
func RecordWorkerJobFailure() { globalManager.workerJobFailures.Inc() }

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry exposes the custom registry for the /metrics handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
