package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.ObserveTurn("answered", 10*time.Millisecond)
	r.ObserveTurn("answered", 20*time.Millisecond)
	r.ObserveTurn("booked", time.Second)
	r.ObserveBooking(true)
	r.ObserveBooking(false)
	r.ObserveBooking(false)
	r.AddEvicted(3)
	r.AddEvicted(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.turnsTotal.WithLabelValues("answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.turnsTotal.WithLabelValues("booked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.bookingsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.bookingsTotal.WithLabelValues("failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.sessionsEvicted))
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.ObserveTurn("answered", time.Second)
		r.ObserveStep("generation", time.Second)
		r.ObserveBooking(true)
		r.AddEvicted(1)
	})
	assert.Nil(t, r.Registry())
}

func TestRecorder_HandlerAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := NewRecorder()
	engine := gin.New()
	engine.Use(r.Middleware())
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	engine.GET("/metrics", gin.WrapH(r.Handler()))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "/ping", "200")))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "receptionist_http_requests_total")
}
