package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCacheCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.CacheHit("events")
	m.CacheHit("events")
	m.CacheMiss("events")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("events", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("events", "miss")))
}

func TestSubmitCounter(t *testing.T) {
	m := Nop()
	m.Submit("batch", nil)
	m.Submit("batch", errors.New("db down"))
	m.Submit("single", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttendanceSubmits.WithLabelValues("batch", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttendanceSubmits.WithLabelValues("batch", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttendanceSubmits.WithLabelValues("single", "ok")))
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheHit("x")
		m.CacheMiss("x")
		m.Submit("batch", nil)
	})
}
