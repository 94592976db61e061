package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/timetable-change-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the directory cache and the change request engine.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	cacheLatency       prometheus.Observer
	cacheHitRatio      prometheus.Gauge
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	validationTotal    *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	applyTotal         *prometheus.CounterVec
	commitRaces        *prometheus.CounterVec

	cacheHitCount   uint64
	cacheMissCount  uint64
	requestCount    uint64
	validationCount uint64
	appliedCount    uint64
	abortedCount    uint64
	raceCount       uint64
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
		Name:    "directory_cache_latency_seconds",
		Help:    "Latency for directory cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "directory_cache_hit_ratio",
		Help: "Ratio of directory cache hits to total lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "directory_cache_hits_total",
		Help: "Total directory cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "directory_cache_misses_total",
		Help: "Total directory cache misses",
	})

	validationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "change_request_validations_total",
		Help: "Validation reports produced, by request kind and recommendation",
	}, []string{"kind", "recommendation"})

	validationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "change_request_validation_seconds",
		Help:    "Time spent computing validation reports",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"kind"})

	applyTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "change_request_apply_total",
		Help: "Apply attempts by request kind and outcome",
	}, []string{"kind", "outcome"})

	commitRaces := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_commit_races_total",
		Help: "Timetable commits rejected because watched cells changed",
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHitRatio, cacheHits, cacheMisses,
		validationTotal, validationDuration, applyTotal, commitRaces, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		validationTotal:    validationTotal,
		validationDuration: validationDuration,
		applyTotal:         applyTotal,
		commitRaces:        commitRaces,
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

// Registry returns the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
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

// ObserveValidation records one validation report.
func (m *MetricsService) ObserveValidation(kind models.RequestKind, recommendation models.Recommendation, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.validationTotal.WithLabelValues(string(kind), string(recommendation)).Inc()
	m.validationDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	atomic.AddUint64(&m.validationCount, 1)
}

// ObserveApply records the outcome of an apply.
func (m *MetricsService) ObserveApply(kind models.RequestKind, outcome string) {
	if m == nil {
		return
	}
	m.applyTotal.WithLabelValues(string(kind), outcome).Inc()
	if outcome == ApplyOutcomeApplied {
		atomic.AddUint64(&m.appliedCount, 1)
	} else {
		atomic.AddUint64(&m.abortedCount, 1)
	}
}

// IncCommitRace counts a commit rejected by the version check.
func (m *MetricsService) IncCommitRace(kind models.RequestKind) {
	if m == nil {
		return
	}
	m.commitRaces.WithLabelValues(string(kind)).Inc()
	atomic.AddUint64(&m.raceCount, 1)
}

// Snapshot returns aggregated counters for the stats endpoint.
func (m *MetricsService) Snapshot() models.EngineMetrics {
	if m == nil {
		return models.EngineMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	return models.EngineMetrics{
		RequestsTotal: atomic.LoadUint64(&m.requestCount),
		Validations:   atomic.LoadUint64(&m.validationCount),
		Applied:       atomic.LoadUint64(&m.appliedCount),
		Aborted:       atomic.LoadUint64(&m.abortedCount),
		CommitRaces:   atomic.LoadUint64(&m.raceCount),
		CacheHitRatio: cacheRatio,
		Goroutines:    runtime.NumGoroutine(),
		GeneratedAt:   time.Now().UTC(),
	}
}
