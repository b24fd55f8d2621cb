package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBatchRunCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	at := time.Date(2024, 3, 10, 0, 30, 0, 0, time.UTC)

	m.BatchRun("completed", at)
	m.BatchRun("aborted", at.Add(time.Hour))
	m.BatchRun("completed", at)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.batchRuns.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchRuns.WithLabelValues("aborted")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.lastSuccess))
}

func TestKeyVerified(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.KeyVerified(true)
	m.KeyVerified(false)
	m.KeyVerified(false)
	m.KeyIssued()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.keyVerification.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.keyVerification.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.keysIssued))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BatchRun("completed", time.Now())
		m.MemberFailure("insert")
		m.KeyVerified(true)
		m.KeyIssued()
		m.ObserveHTTP("GET", "/healthz", 200, time.Millisecond)
	})
}
