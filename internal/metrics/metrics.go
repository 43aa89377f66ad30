// Package metrics records call pipeline metrics for prometheus
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "receptionist"

// Recorder holds the receptionist's collectors. A nil *Recorder records nothing
type Recorder struct {
	registry *prometheus.Registry

	turnsTotal       *prometheus.CounterVec
	turnDuration     *prometheus.HistogramVec
	stepDuration     *prometheus.HistogramVec
	bookingsTotal    *prometheus.CounterVec
	sessionsEvicted  prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpRequestsTime *prometheus.HistogramVec
}

// NewRecorder registers the collectors on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Total caller turns handled, by outcome.",
			},
			[]string{"outcome"},
		),
		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Duration of a full caller turn.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of individual pipeline steps.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"step"}, // retrieval, generation, booking
		),
		bookingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookings_total",
				Help:      "Booking dispatch attempts, by result.",
			},
			[]string{"result"},
		),
		sessionsEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_evicted_total",
				Help:      "Sessions removed by the TTL janitor.",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestsTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Registry exposes the underlying registry, mostly for tests
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveTurn records a completed turn
func (r *Recorder) ObserveTurn(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.turnsTotal.WithLabelValues(outcome).Inc()
	r.turnDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveStep records how long a pipeline step took
func (r *Recorder) ObserveStep(step string, d time.Duration) {
	if r == nil {
		return
	}
	r.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// ObserveBooking counts a booking dispatch attempt
func (r *Recorder) ObserveBooking(success bool) {
	if r == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	r.bookingsTotal.WithLabelValues(result).Inc()
}

// AddEvicted counts sessions evicted by the janitor
func (r *Recorder) AddEvicted(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.sessionsEvicted.Add(float64(n))
}

// Middleware records request counts and durations per route
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		r.httpRequestsTime.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		r.httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
