// Package metrics provides Prometheus metrics for the scoring core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scoring core.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Computation metrics
	computeDuration *prometheus.HistogramVec // labeled by component
	snapshotLoads   prometheus.Counter

	// Snapshot gauges
	loadedCompetitors prometheus.Gauge
	loadedProblems    prometheus.Gauge
	loadedScores      prometheus.Gauge

	// Rank-history cache metrics
	cacheHits        *prometheus.CounterVec // labeled by tier
	cacheMisses      *prometheus.CounterVec
	cacheWriteErrors *prometheus.CounterVec
	cacheEvictions   *prometheus.CounterVec

	// Data-quality metrics
	dataQualityWarnings *prometheus.CounterVec // labeled by kind

	// Recommendation metrics
	recommendationSearches   prometheus.Counter
	recommendationCandidates prometheus.Histogram
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
		namespace:        "crux",
		subsystem:        "scoring",
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
	factory := promauto.With(m.registry)

	m.computeDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "compute_duration_seconds",
		Help:      "Duration of core computations by component.",
		Buckets:   m.histogramBuckets,
	}, []string{"component"})

	m.snapshotLoads = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_loads_total",
		Help:      "Number of competition snapshots loaded.",
	})

	m.loadedCompetitors = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "loaded_competitors",
		Help:      "Competitors in the currently loaded snapshot.",
	})

	m.loadedProblems = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "loaded_problems",
		Help:      "Problems in the currently loaded snapshot.",
	})

	m.loadedScores = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "loaded_scores",
		Help:      "Raw score records in the currently loaded snapshot.",
	})

	m.cacheHits = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_cache_hits_total",
		Help:      "Rank-history cache hits by tier.",
	}, []string{"tier"})

	m.cacheMisses = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_cache_misses_total",
		Help:      "Rank-history cache misses by tier.",
	}, []string{"tier"})

	m.cacheWriteErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_cache_write_errors_total",
		Help:      "Failed rank-history cache writes by tier.",
	}, []string{"tier"})

	m.cacheEvictions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_cache_evictions_total",
		Help:      "Rank-history cache entries evicted by retention, by tier.",
	}, []string{"tier"})

	m.dataQualityWarnings = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "data_quality_warnings_total",
		Help:      "Skipped or degraded records by warning kind.",
	}, []string{"kind"})

	m.recommendationSearches = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recommendation_searches_total",
		Help:      "Recommendation searches performed.",
	})

	m.recommendationCandidates = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recommendation_candidates",
		Help:      "Surviving candidate count per recommendation search.",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
	})
}

// timeComponent observes the duration of one computation.
func (m *Manager) timeComponent(component string) func() {
	start := time.Now()
	return func() {
		m.computeDuration.WithLabelValues(component).Observe(time.Since(start).Seconds())
	}
}

// TimeLeaderboardBuild times one leaderboard build; call the returned
// func when done.
func TimeLeaderboardBuild() func() {
	return globalManager.timeComponent("leaderboard")
}

// TimeStatsBuild times one problem-statistics build.
func TimeStatsBuild() func() {
	return globalManager.timeComponent("stats")
}

// TimeHistoryCompute times one rank-history snapshot computation.
func TimeHistoryCompute() func() {
	return globalManager.timeComponent("history")
}

// TimeRecommendationSearch times one recommendation search.
func TimeRecommendationSearch() func() {
	return globalManager.timeComponent("recommend")
}

// RecordSnapshotLoad records one snapshot load and its entity sizes.
func RecordSnapshotLoad(competitors, problems, scores int) {
	globalManager.snapshotLoads.Inc()
	globalManager.loadedCompetitors.Set(float64(competitors))
	globalManager.loadedProblems.Set(float64(problems))
	globalManager.loadedScores.Set(float64(scores))
}

// RecordCacheHit records a rank-history cache hit on a tier.
func RecordCacheHit(tier string) {
	globalManager.cacheHits.WithLabelValues(tier).Inc()
}

// RecordCacheMiss records a rank-history cache miss on a tier.
func RecordCacheMiss(tier string) {
	globalManager.cacheMisses.WithLabelValues(tier).Inc()
}

// RecordCacheWriteError records a failed cache write on a tier.
func RecordCacheWriteError(tier string) {
	globalManager.cacheWriteErrors.WithLabelValues(tier).Inc()
}

// RecordCacheEviction records a retention eviction on a tier.
func RecordCacheEviction(tier string) {
	globalManager.cacheEvictions.WithLabelValues(tier).Inc()
}

// RecordDataQualityWarning records one skipped or degraded record.
func RecordDataQualityWarning(kind string) {
	globalManager.dataQualityWarnings.WithLabelValues(kind).Inc()
}

// RecordRecommendationSearch records one search and how many candidates
// survived filtering.
func RecordRecommendationSearch(candidates int) {
	globalManager.recommendationSearches.Inc()
	globalManager.recommendationCandidates.Observe(float64(candidates))
}

// GetRegistry returns the custom registry for exposition.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
