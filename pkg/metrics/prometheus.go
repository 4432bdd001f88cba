// Package metrics provides Prometheus metrics for the studyrank service.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the studyrank service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ranking pipeline
	rankingsTotal   *prometheus.CounterVec
	rankingLatency  *prometheus.HistogramVec
	rankingErrors   *prometheus.CounterVec
	entitiesRanked  *prometheus.GaugeVec
	groupsEvaluated *prometheus.GaugeVec

	// Snapshot loading and caching
	snapshotLoadLatency *prometheus.HistogramVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	cacheInvalidations  prometheus.Counter

	// Store
	storeQueryLatency *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec
	datasetRowsLoaded *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "studyrank",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.rankingsTotal = auto.NewCounterVec(
		m.counterOpts("rankings_total", "Total number of rankings computed"),
		[]string{"kind", "preferences"},
	)
	m.rankingLatency = auto.NewHistogramVec(
		m.histogramOpts("ranking_latency_milliseconds", "End-to-end ranking latency in milliseconds"),
		[]string{"kind"},
	)
	m.rankingErrors = auto.NewCounterVec(
		m.counterOpts("ranking_errors_total", "Total number of failed rankings"),
		[]string{"kind"},
	)
	m.entitiesRanked = auto.NewGaugeVec(
		m.gaugeOpts("entities_ranked", "Number of entities in the last ranking"),
		[]string{"kind"},
	)
	m.groupsEvaluated = auto.NewGaugeVec(
		m.gaugeOpts("groups_evaluated", "Number of metric groups in the last ranking"),
		[]string{"kind"},
	)

	m.snapshotLoadLatency = auto.NewHistogramVec(
		m.histogramOpts("snapshot_load_latency_milliseconds", "Time to load a scoring snapshot from the store"),
		[]string{"kind"},
	)
	m.cacheHits = auto.NewCounterVec(
		m.counterOpts("cache_hits_total", "Ranking cache hits"),
		[]string{"kind"},
	)
	m.cacheMisses = auto.NewCounterVec(
		m.counterOpts("cache_misses_total", "Ranking cache misses"),
		[]string{"kind"},
	)
	m.cacheInvalidations = auto.NewCounter(
		m.counterOpts("cache_invalidations_total", "Ranking cache purges"),
	)

	m.storeQueryLatency = auto.NewHistogramVec(
		m.histogramOpts("store_query_latency_milliseconds", "Store query latency in milliseconds"),
		[]string{"operation"},
	)
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Store query errors"),
		[]string{"operation"},
	)
	m.datasetRowsLoaded = auto.NewCounterVec(
		m.counterOpts("dataset_rows_loaded_total", "Rows written by dataset seeding"),
		[]string{"table"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
}

func prefLabel(hasDisciplines, hasIndustries bool) string {
	switch {
	case hasDisciplines && hasIndustries:
		return "both"
	case hasDisciplines:
		return "disciplines"
	case hasIndustries:
		return "industries"
	default:
		return "none"
	}
}

// RecordRanking records a completed ranking.
func RecordRanking(kind string, hasDisciplines, hasIndustries bool, entities, groups int, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankingsTotal.WithLabelValues(kind, prefLabel(hasDisciplines, hasIndustries)).Inc()
	globalManager.rankingLatency.WithLabelValues(kind).Observe(latencyMs)
	globalManager.entitiesRanked.WithLabelValues(kind).Set(float64(entities))
	globalManager.groupsEvaluated.WithLabelValues(kind).Set(float64(groups))
}

// RecordRankingError increments the ranking error counter.
func RecordRankingError(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankingErrors.WithLabelValues(kind).Inc()
}

// RecordSnapshotLoad records how long loading a scoring snapshot took.
func RecordSnapshotLoad(kind string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.snapshotLoadLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordCacheInvalidation increments the cache purge counter.
func RecordCacheInvalidation() {
	if !globalManager.enabled {
		return
	}
	globalManager.cacheInvalidations.Inc()
}

// RecordStoreQuery records store query latency and, when err is set, an error.
func RecordStoreQuery(operation string, latencyMs float64, err error) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeQueryLatency.WithLabelValues(operation).Observe(latencyMs)
	if err != nil {
		globalManager.storeErrors.WithLabelValues(operation).Inc()
	}
}

// RecordDatasetRows adds n rows written to table during seeding.
func RecordDatasetRows(table string, n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.datasetRowsLoaded.WithLabelValues(table).Add(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// StartRuntimeSampler samples runtime gauges every refresh interval until ctx is done.
func StartRuntimeSampler(ctx context.Context) {
	go globalManager.sampleRuntime(ctx)
}

func (m *Manager) sampleRuntime(ctx context.Context) {
	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()
	var ms runtime.MemStats
	for {
		runtime.ReadMemStats(&ms)
		UpdateSystemMemoryUsage(ms.HeapInuse)
		UpdateSystemGoroutineCount(runtime.NumGoroutine())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SetEnabled toggles recording on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
