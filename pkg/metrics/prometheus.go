// Package metrics provides Prometheus metrics for the competence service.
package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes used as label values.
const (
	OutcomeSuccess    = "success"
	OutcomeFetchError = "fetch_error"
	OutcomeParseError = "parse_error"
	OutcomeMalformed  = "malformed"
	OutcomeStale      = "stale"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Data source
	fetchAttempts *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	fetchLatency  prometheus.Histogram

	// Aggregation
	aggregationLatency prometheus.Histogram
	aggregationErrors  prometheus.Counter
	categories         prometheus.Gauge
	competencies       prometheus.Gauge
	grandTotal         prometheus.Gauge

	// Refresh pipeline
	refreshes        *prometheus.CounterVec
	snapshotSeq      prometheus.Gauge
	snapshotLastUnix prometheus.Gauge

	// Refresh queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	workerCount        prometheus.Gauge
	workerErrors       prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

type globalState struct {
	manager  *Manager
	registry *prometheus.Registry
}

// Global manager and the registry it reports to, swapped as a pair by Init.
var global atomic.Pointer[globalState] //nolint:gochecknoglobals // intentional global for singleton metrics manager

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Init()
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it at startup, before metrics are served.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	global.Store(&globalState{manager: m, registry: registry})
}

func globalManager() *Manager { return global.Load().manager }

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "competence",
		subsystem:        "service",
		histogramBuckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.fetchAttempts = m.counterVec("fetch_attempts_total", "Data source fetch attempts by scheme", "scheme")
	m.fetchFailures = m.counterVec("fetch_failures_total", "Data source fetch failures by kind", "kind")
	m.fetchLatency = m.histogram("fetch_latency_milliseconds", "Data source fetch latency in milliseconds, retries included")

	m.aggregationLatency = m.histogram("aggregation_latency_milliseconds", "Aggregation latency in milliseconds")
	m.aggregationErrors = m.counter("aggregation_errors_total", "Aggregations rejected as malformed input")
	m.categories = m.gauge("categories", "Distinct categories in the latest snapshot")
	m.competencies = m.gauge("competencies", "Retained competencies in the latest snapshot")
	m.grandTotal = m.gauge("grand_total", "Sum of all category totals in the latest snapshot")

	m.refreshes = m.counterVec("refreshes_total", "Refresh runs by outcome", "outcome")
	m.snapshotSeq = m.gauge("snapshot_sequence", "Sequence number of the latest published snapshot")
	m.snapshotLastUnix = m.gauge("snapshot_last_unixtime", "Unix time of the latest published snapshot")

	m.queueSize = m.gauge("refresh_queue_size", "Pending refresh requests")
	m.queueCapacity = m.gauge("refresh_queue_capacity", "Refresh queue capacity")
	m.queueEnqueues = m.counter("refresh_queue_enqueued_total", "Refresh requests accepted")
	m.queueDequeues = m.counter("refresh_queue_dequeued_total", "Refresh requests handed to workers")
	m.queueEnqueueErrors = m.counterVec("refresh_queue_enqueue_errors_total", "Refresh requests rejected by reason", "reason")
	m.workerCount = m.gauge("worker_count", "Refresh workers running")
	m.workerErrors = m.counter("worker_errors_total", "Refresh requests that failed in a worker")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordFetchAttempt counts one fetch attempt for a URL scheme.
func (m *Manager) RecordFetchAttempt(scheme string) { m.fetchAttempts.WithLabelValues(scheme).Inc() }

// RecordFetchFailure counts a failed fetch by kind (fetch, parse, ...).
func (m *Manager) RecordFetchFailure(kind string) { m.fetchFailures.WithLabelValues(kind).Inc() }

// RecordFetchLatency records fetch latency in milliseconds.
func (m *Manager) RecordFetchLatency(ms float64) { m.fetchLatency.Observe(ms) }

// RecordAggregationLatency records aggregation latency in milliseconds.
func (m *Manager) RecordAggregationLatency(ms float64) { m.aggregationLatency.Observe(ms) }

// RecordAggregationError counts a malformed-input rejection.
func (m *Manager) RecordAggregationError() { m.aggregationErrors.Inc() }

// UpdateSnapshot publishes the shape of the latest snapshot.
func (m *Manager) UpdateSnapshot(seq uint64, categories, competencies int, grandTotal float64, unix int64) {
	m.snapshotSeq.Set(float64(seq))
	m.categories.Set(float64(categories))
	m.competencies.Set(float64(competencies))
	m.grandTotal.Set(grandTotal)
	m.snapshotLastUnix.Set(float64(unix))
}

// RecordRefresh counts a refresh run by outcome.
func (m *Manager) RecordRefresh(outcome string) error {
	switch outcome {
	case OutcomeSuccess, OutcomeFetchError, OutcomeParseError, OutcomeMalformed, OutcomeStale:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOutcome, outcome)
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	return nil
}

// UpdateQueueSize sets the current queue size.
func (m *Manager) UpdateQueueSize(size int) { m.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func (m *Manager) UpdateQueueCapacity(capacity int) { m.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts an accepted refresh request.
func (m *Manager) RecordQueueEnqueue() { m.queueEnqueues.Inc() }

// RecordQueueDequeue counts a refresh request handed to a worker.
func (m *Manager) RecordQueueDequeue() { m.queueDequeues.Inc() }

// RecordQueueEnqueueError counts a rejected refresh request.
func (m *Manager) RecordQueueEnqueueError(reason string) {
	m.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of running workers.
func (m *Manager) UpdateWorkerCount(count int) { m.workerCount.Set(float64(count)) }

// RecordWorkerError counts a failed refresh inside a worker.
func (m *Manager) RecordWorkerError() { m.workerErrors.Inc() }

// RecordHTTPRequest records an HTTP request with its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an error response.
func (m *Manager) RecordHTTPError(endpoint, method, errorType, severity string) {
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// UpdateSystem sets process memory and goroutine gauges.
func (m *Manager) UpdateSystem(memBytes uint64, goroutines int) {
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
}

// Package-level helpers delegate to the global manager.

// RecordFetchAttempt counts one fetch attempt for a URL scheme.
func RecordFetchAttempt(scheme string) { globalManager().RecordFetchAttempt(scheme) }

// RecordFetchFailure counts a failed fetch by kind.
func RecordFetchFailure(kind string) { globalManager().RecordFetchFailure(kind) }

// RecordFetchLatency records fetch latency in milliseconds.
func RecordFetchLatency(ms float64) { globalManager().RecordFetchLatency(ms) }

// RecordAggregationLatency records aggregation latency in milliseconds.
func RecordAggregationLatency(ms float64) { globalManager().RecordAggregationLatency(ms) }

// RecordAggregationError counts a malformed-input rejection.
func RecordAggregationError() { globalManager().RecordAggregationError() }

// UpdateSnapshot publishes the shape of the latest snapshot.
func UpdateSnapshot(seq uint64, categories, competencies int, grandTotal float64, unix int64) {
	globalManager().UpdateSnapshot(seq, categories, competencies, grandTotal, unix)
}

// RecordRefresh counts a refresh run by outcome.
func RecordRefresh(outcome string) error { return globalManager().RecordRefresh(outcome) }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager().UpdateQueueSize(size) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager().UpdateQueueCapacity(capacity) }

// RecordQueueEnqueue counts an accepted refresh request.
func RecordQueueEnqueue() { globalManager().RecordQueueEnqueue() }

// RecordQueueDequeue counts a refresh request handed to a worker.
func RecordQueueDequeue() { globalManager().RecordQueueDequeue() }

// RecordQueueEnqueueError counts a rejected refresh request.
func RecordQueueEnqueueError(reason string) { globalManager().RecordQueueEnqueueError(reason) }

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) { globalManager().UpdateWorkerCount(count) }

// RecordWorkerError counts a failed refresh inside a worker.
func RecordWorkerError() { globalManager().RecordWorkerError() }

// RecordHTTPRequest records an HTTP request with its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager().RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	globalManager().RecordHTTPError(endpoint, method, errorType, severity)
}

// UpdateSystem sets process memory and goroutine gauges.
func UpdateSystem(memBytes uint64, goroutines int) { globalManager().UpdateSystem(memBytes, goroutines) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return global.Load().registry
}
