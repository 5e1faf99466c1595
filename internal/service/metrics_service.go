package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tmc-tutoring/match-api/internal/models"
)

// Generation run outcomes used as metric labels.
const (
	generationOutcomeDone     = "done"
	generationOutcomeFailed   = "failed"
	generationOutcomeRejected = "rejected"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	generationRuns  *prometheus.CounterVec
	phaseDuration   *prometheus.HistogramVec
	lastMatched     prometheus.Gauge
	lastUnmatched   *prometheus.GaugeVec
	excluded        *prometheus.CounterVec
	failedPairs     prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	runCount             uint64
	runFailures          uint64
	runRejected          uint64
	lastMatchedCount     int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	generationRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "match_generation_runs_total",
		Help: "Match generation runs by outcome",
	}, []string{"outcome"})

	phaseDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "match_generation_phase_seconds",
		Help:    "Duration of each match generation phase",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	lastMatched := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "match_generation_last_matched",
		Help: "Matched pairs reported by the last finished run",
	})

	lastUnmatched := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "match_generation_last_unmatched",
		Help: "Unmatched participants reported by the last finished run",
	}, []string{"role"})

	excluded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "match_generation_excluded_total",
		Help: "Participants excluded from generation runs",
	}, []string{"role"})

	failedPairs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "match_generation_failed_pairs_total",
		Help: "Chosen pairs whose match could not be written",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		generationRuns, phaseDuration, lastMatched, lastUnmatched, excluded, failedPairs, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		generationRuns:  generationRuns,
		phaseDuration:   phaseDuration,
		lastMatched:     lastMatched,
		lastUnmatched:   lastUnmatched,
		excluded:        excluded,
		failedPairs:     failedPairs,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveGenerationPhase records how long one generation phase took.
func (m *MetricsService) ObserveGenerationPhase(state models.GenerationState, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(string(state)).Observe(duration.Seconds())
}

// RecordGenerationExcluded counts participants excluded from a run.
func (m *MetricsService) RecordGenerationExcluded(role string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.excluded.WithLabelValues(role).Add(float64(count))
}

// RecordGenerationRejected counts a run refused because another was in progress.
func (m *MetricsService) RecordGenerationRejected() {
	if m == nil {
		return
	}
	m.generationRuns.WithLabelValues(generationOutcomeRejected).Inc()
	atomic.AddUint64(&m.runRejected, 1)
}

// RecordGenerationRun records the outcome of a finished run.
func (m *MetricsService) RecordGenerationRun(state models.GenerationState, matched, unmatchedStudents, unmatchedTutors, failedPairs int) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.runCount, 1)
	if state == models.GenerationStateFailed {
		m.generationRuns.WithLabelValues(generationOutcomeFailed).Inc()
		atomic.AddUint64(&m.runFailures, 1)
	} else {
		m.generationRuns.WithLabelValues(generationOutcomeDone).Inc()
	}
	m.lastMatched.Set(float64(matched))
	atomic.StoreInt64(&m.lastMatchedCount, int64(matched))
	m.lastUnmatched.WithLabelValues("student").Set(float64(unmatchedStudents))
	m.lastUnmatched.WithLabelValues("tutor").Set(float64(unmatchedTutors))
	if failedPairs > 0 {
		m.failedPairs.Add(float64(failedPairs))
	}
}

// Snapshot returns aggregated metrics suitable for the admin dashboard.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		GenerationRuns:           atomic.LoadUint64(&m.runCount),
		GenerationFailures:       atomic.LoadUint64(&m.runFailures),
		GenerationRejected:       atomic.LoadUint64(&m.runRejected),
		LastMatchedCount:         atomic.LoadInt64(&m.lastMatchedCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
