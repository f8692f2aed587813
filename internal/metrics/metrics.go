package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	evaluations     *prometheus.CounterVec
	classifications *prometheus.CounterVec
	alerts          prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agronity_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agronity_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agronity_feasibility_evaluations_total",
				Help: "Feasibility evaluations by model and outcome",
			},
			[]string{"model", "status"},
		),
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agronity_image_classifications_total",
				Help: "Image classifications by source and health",
			},
			[]string{"source", "health"},
		),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agronity_disease_alerts_total",
			Help: "Disease alerts raised",
		}),
	}

	m.registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.evaluations,
		m.classifications,
		m.alerts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestCount.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEvaluation counts one feasibility evaluation.
func (m *Metrics) ObserveEvaluation(model, status string) {
	if model == "" {
		model = "none"
	}
	m.evaluations.WithLabelValues(model, status).Inc()
}

// ObserveClassification counts one image classification.
func (m *Metrics) ObserveClassification(source, health string) {
	if source == "" {
		source = "none"
	}
	if health == "" {
		health = "unknown"
	}
	m.classifications.WithLabelValues(source, health).Inc()
}

// ObserveAlert counts one disease alert.
func (m *Metrics) ObserveAlert() {
	m.alerts.Inc()
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
