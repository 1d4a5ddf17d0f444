// Package metrics provides Prometheus metrics for the almog service.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline
	pipelineRuns       *prometheus.CounterVec
	pipelineLatency    prometheus.Histogram
	recordsIngested    prometheus.Counter
	recordsExcluded    prometheus.Counter
	aggregatesProduced prometheus.Counter
	emptyDatasets      prometheus.Counter

	// Store
	storePagesFetched  prometheus.Counter
	storeDuplicateRows prometheus.Counter
	storeQueryLatency  *prometheus.HistogramVec
	storeErrors        *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec

	// Notes
	noteWrites *prometheus.CounterVec
	noteErrors *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "almog",
		subsystem:        "squad",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.pipelineRuns = m.counterVec("pipeline_runs_total", "Pipeline runs by grouping", "grouping")
	m.pipelineLatency = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "pipeline_latency_milliseconds",
		Help:        "Time spent in one aggregation and scoring pipeline run",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
	m.recordsIngested = m.counter("records_ingested_total", "Session records fed into the pipeline")
	m.recordsExcluded = m.counter("records_excluded_total", "Session records dropped by the roster exclusion filter")
	m.aggregatesProduced = m.counter("aggregates_produced_total", "Weekly or per-match aggregates emitted")
	m.emptyDatasets = m.counter("empty_datasets_total", "Pipeline runs that had no session records")

	m.storePagesFetched = m.counter("store_pages_fetched_total", "Pages read from the session store")
	m.storeDuplicateRows = m.counter("store_duplicate_rows_total", "Rows returned twice across pages and dropped")
	m.storeQueryLatency = m.histogramVec("store_query_latency_milliseconds", "Session store call latency", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Session store failures", "op")
	m.breakerState = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_breaker_state",
		Help:        "Circuit breaker state for the session store (0 closed, 1 half-open, 2 open)",
		ConstLabels: m.constLabels,
	}, []string{"name"})

	m.noteWrites = m.counterVec("note_writes_total", "Successful note writes by kind", "kind")
	m.noteErrors = m.counterVec("note_errors_total", "Failed note writes by kind", "kind")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP responses with status >= 400", "endpoint", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.gauge("system_gc_pause_milliseconds", "Average GC pause")
}

// RecordPipelineRun counts one pipeline run and observes its latency.
func RecordPipelineRun(grouping string, latencyMs float64) {
	globalManager.pipelineRuns.WithLabelValues(grouping).Inc()
	globalManager.pipelineLatency.Observe(latencyMs)
}

// RecordRecordsIngested adds n to the ingested records counter.
func RecordRecordsIngested(n int) {
	globalManager.recordsIngested.Add(float64(n))
}

// RecordRecordsExcluded adds n to the excluded records counter.
func RecordRecordsExcluded(n int) {
	globalManager.recordsExcluded.Add(float64(n))
}

// RecordAggregatesProduced adds n to the produced aggregates counter.
func RecordAggregatesProduced(n int) {
	globalManager.aggregatesProduced.Add(float64(n))
}

// RecordEmptyDataset counts a run with no input rows.
func RecordEmptyDataset() {
	globalManager.emptyDatasets.Inc()
}

// RecordStorePage counts one page read from the store.
func RecordStorePage() {
	globalManager.storePagesFetched.Inc()
}

// RecordStoreDuplicateRows counts rows dropped by id de-duplication.
func RecordStoreDuplicateRows(n int) {
	globalManager.storeDuplicateRows.Add(float64(n))
}

// RecordStoreLatency observes the latency of one store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// UpdateBreakerState sets the breaker gauge for name.
func UpdateBreakerState(name string, state int) {
	globalManager.breakerState.WithLabelValues(name).Set(float64(state))
}

// RecordNoteWrite counts a successful note write ("update" or "placeholder").
func RecordNoteWrite(kind string) {
	globalManager.noteWrites.WithLabelValues(kind).Inc()
}

// RecordNoteError counts a failed note write.
func RecordNoteError(kind string) {
	globalManager.noteErrors.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}

// RecordSystemGCPauseTime sets the average GC pause gauge.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.systemGCPauseTime.Set(ms)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Totals gathers the custom registry and returns the summed value of every
// counter and gauge family, keyed by metric name without the namespace prefix.
func Totals() (map[string]float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGather, err)
	}
	prefix := globalManager.namespace + "_" + globalManager.subsystem + "_"
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		name := strings.TrimPrefix(mf.GetName(), prefix)
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				out[name] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				out[name] += metric.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
