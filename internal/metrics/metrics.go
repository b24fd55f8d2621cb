// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	batchRuns       *prometheus.CounterVec
	memberFailures  *prometheus.CounterVec
	lastSuccess     prometheus.Gauge
	keyVerification *prometheus.CounterVec
	keysIssued      prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		batchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "root",
			Name:      "daily_batch_runs_total",
			Help:      "Daily attendance batches by outcome.",
		}, []string{"outcome"}),
		memberFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "root",
			Name:      "daily_batch_member_failures_total",
			Help:      "Per-member batch step failures.",
		}, []string{"step"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "root",
			Name:      "daily_batch_last_success_timestamp_seconds",
			Help:      "Unix time of the last batch that fetched members successfully.",
		}),
		keyVerification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "root",
			Name:      "api_key_verifications_total",
			Help:      "API key verifications by result.",
		}, []string{"result"}),
		keysIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "root",
			Name:      "api_keys_issued_total",
			Help:      "API keys issued.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "root",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "root",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.batchRuns, m.memberFailures, m.lastSuccess, m.keyVerification, m.keysIssued, m.httpRequests, m.httpLatency)
	return m
}

// BatchRun records a finished batch. outcome is one of completed, aborted, rows_only.
func (m *Metrics) BatchRun(outcome string, at time.Time) {
	if m == nil {
		return
	}
	m.batchRuns.WithLabelValues(outcome).Inc()
	if outcome == "completed" {
		m.lastSuccess.Set(float64(at.Unix()))
	}
}

// MemberFailure counts one failed per-member step (insert or summary).
func (m *Metrics) MemberFailure(step string) {
	if m == nil {
		return
	}
	m.memberFailures.WithLabelValues(step).Inc()
}

// KeyVerified counts a verification result.
func (m *Metrics) KeyVerified(ok bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if ok {
		result = "accepted"
	}
	m.keyVerification.WithLabelValues(result).Inc()
}

// KeyIssued counts an issued credential.
func (m *Metrics) KeyIssued() {
	if m == nil {
		return
	}
	m.keysIssued.Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
