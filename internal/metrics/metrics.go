package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the portal's prometheus collectors.
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	DBRetries         prometheus.Counter
	DBRejected        prometheus.Counter
	CacheLookups      *prometheus.CounterVec
	AttendanceSubmits *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fsy",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fsy",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		DBRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fsy",
			Name:      "db_retries_total",
			Help:      "Database operations retried after a transient error.",
		}),
		DBRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fsy",
			Name:      "db_pool_rejections_total",
			Help:      "Database operations rejected because pool and wait queue were full.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fsy",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache name and result.",
		}, []string{"cache", "result"}),
		AttendanceSubmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fsy",
			Name:      "attendance_submissions_total",
			Help:      "Attendance writes by kind (batch, single) and result.",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.DBRetries, m.DBRejected, m.CacheLookups, m.AttendanceSubmits)
	return m
}

// Nop returns collectors registered nowhere.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

// CacheHit and CacheMiss are nil-safe helpers for cache implementations.
func (m *Metrics) CacheHit(name string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(name, "hit").Inc()
	}
}

func (m *Metrics) CacheMiss(name string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(name, "miss").Inc()
	}
}

func (m *Metrics) Submit(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AttendanceSubmits.WithLabelValues(kind, result).Inc()
}
