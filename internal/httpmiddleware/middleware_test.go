package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"fsyportal/internal/metrics"
)

func TestIPLimiter_BurstThenRefill(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	l := NewIPLimiter(3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"), "other clients have their own bucket")

	now = now.Add(20 * time.Second)
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
}

func TestIPLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	l := NewIPLimiter(10)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.size())

	now = now.Add(idleTTL + time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.size())
}

func TestMiddlewareChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.Nop()

	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core), "/healthz"), Metrics(m), SecurityHeaders(), NewIPLimiter(1).GinMiddleware())
	r.GET("/api/events", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "abc-123", entries[0].ContextMap()["request_id"])
		assert.Equal(t, zap.WarnLevel, entries[1].Level)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/events", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/events", "4xx")))
}
