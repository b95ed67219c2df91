package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "taskapi"

var (
	latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	httpLabels     = []string{"method", "route", "status"}
)

// Prom holds the service's collectors. Methods are safe on a nil *Prom so
// tests and tools can run without a registry.
type Prom struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	DBDuration *prometheus.HistogramVec
	DBErrors   *prometheus.CounterVec

	LoginAttempts *prometheus.CounterVec
}

// NewProm creates the collectors and registers them on reg.
func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template and status.",
		}, httpLabels),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   latencyBuckets,
		}, httpLabels),
		HTTPInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Requests currently being served.",
		}),
		DBDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Latency of repository operations.",
			Buckets:   latencyBuckets,
		}, []string{"op", "status"}),
		DBErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Failed repository operations by error class.",
		}, []string{"op", "class"}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by result (success or failure).",
		}, []string{"result"}),
	}

	reg.MustRegister(
		p.HTTPRequests,
		p.HTTPDuration,
		p.HTTPInFlight,
		p.DBDuration,
		p.DBErrors,
		p.LoginAttempts,
	)
	return p
}

// HTTPMiddleware counts and times requests by route template. Unrouted
// requests share the "unmatched" label to keep cardinality bounded.
func (p *Prom) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p == nil {
			c.Next()
			return
		}

		p.HTTPInFlight.Inc()
		defer p.HTTPInFlight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		p.HTTPRequests.With(labels).Inc()
		p.HTTPDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// CountLogin records a login outcome.
func (p *Prom) CountLogin(result string) {
	if p == nil {
		return
	}
	p.LoginAttempts.WithLabelValues(result).Inc()
}
