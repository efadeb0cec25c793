// Package observability exposes Prometheus metrics for refreshes, queries and
// the daemon's HTTP routes.
package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theirongolddev/jobmetrics/internal/cache"
	"github.com/theirongolddev/jobmetrics/internal/query"
)

const namespace = "jobmetrics"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	refreshTotal      *prometheus.CounterVec
	refreshDuration   prometheus.Histogram
	snapshotRecords   *prometheus.GaugeVec
	coercedFields     prometheus.Gauge
	lastRefresh       prometheus.Gauge
	queriesTotal      *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
}

// NewMetrics registers collectors on a fresh registry, plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh attempts by result and trigger.",
		}, []string{"result", "trigger"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Histogram of refresh durations.",
			Buckets:   prometheus.DefBuckets,
		}),
		snapshotRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Records in the current snapshot by collection.",
		}, []string{"collection"}),
		coercedFields: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coerced_fields",
			Help:      "Non-numeric extract values read as zero in the last successful refresh.",
		}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Query plans executed by target, verb and result.",
		}, []string{"target", "verb", "result"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Histogram of query plan execution time by target.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"target"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.refreshTotal,
		m.refreshDuration,
		m.snapshotRecords,
		m.coercedFields,
		m.lastRefresh,
		m.queriesTotal,
		m.queryDuration,
	)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Flush passes through so server-sent events keep streaming.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// WrapHandler counts and times requests to one route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRefresh records one refresh attempt.
func (m *Metrics) ObserveRefresh(res cache.RefreshResult) {
	if m == nil {
		return
	}
	result := "ok"
	if !res.OK {
		result = "error"
	}
	m.refreshTotal.WithLabelValues(result, res.Trigger).Inc()
	m.refreshDuration.Observe(res.Duration.Seconds())
	if !res.OK {
		return
	}

	m.snapshotRecords.WithLabelValues("jobs").Set(float64(res.Counts.Jobs))
	m.snapshotRecords.WithLabelValues("ar").Set(float64(res.Counts.AR))
	m.snapshotRecords.WithLabelValues("ap").Set(float64(res.Counts.AP))
	m.snapshotRecords.WithLabelValues("pms").Set(float64(res.Counts.PMs))
	m.snapshotRecords.WithLabelValues("customers").Set(float64(res.Counts.Customers))
	m.snapshotRecords.WithLabelValues("vendors").Set(float64(res.Counts.Vendors))
	m.coercedFields.Set(float64(res.Coerced))
	m.lastRefresh.Set(float64(res.StartedAt.Add(res.Duration).Unix()))
}

// RefreshHook adapts ObserveRefresh to a cache hook.
func (m *Metrics) RefreshHook() cache.Hook {
	return func(_ context.Context, res cache.RefreshResult) {
		m.ObserveRefresh(res)
	}
}

// ObserveQuery records one plan execution. It matches query.Observer.
func (m *Metrics) ObserveQuery(p query.Plan, _ *query.Result, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, query.ErrInvalidPlan):
		result = "invalid"
	case err != nil:
		result = "error"
	}
	target := string(p.Target)
	if !knownTarget(p.Target) {
		target = "unknown"
	}
	verb := string(p.Verb)
	if !knownVerb(p.Verb) {
		verb = "unknown"
	}
	m.queriesTotal.WithLabelValues(target, verb, result).Inc()
	m.queryDuration.WithLabelValues(target).Observe(elapsed.Seconds())
}

// Label values come from user input; keep their cardinality bounded.
func knownTarget(t query.Target) bool {
	for _, known := range query.Targets {
		if t == known {
			return true
		}
	}
	return false
}

func knownVerb(v query.Verb) bool {
	switch v {
	case query.VerbCount, query.VerbSum, query.VerbAverage, query.VerbTop,
		query.VerbBottom, query.VerbGroupBy, query.VerbList:
		return true
	}
	return false
}
