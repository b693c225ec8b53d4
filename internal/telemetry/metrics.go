package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/promptforge/api/internal/optimizer"
)

// Metrics owns the service's Prometheus collectors. It implements
// optimizer.Recorder so model calls are counted where they happen.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	modelAttempts *prometheus.CounterVec
	modelDuration *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
}

var _ optimizer.Recorder = (*Metrics)(nil)

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptforge",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promptforge",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		modelAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptforge",
			Name:      "model_attempts_total",
			Help:      "Chat completion attempts by backend and outcome.",
		}, []string{"backend", "outcome"}),
		modelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promptforge",
			Name:      "model_attempt_duration_seconds",
			Help:      "Latency of single chat completion attempts.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		}, []string{"backend"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promptforge",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Latency of pipeline stages including retries.",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 80, 160, 360},
		}, []string{"stage", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptforge",
			Name:      "summary_cache_lookups_total",
			Help:      "Summary cache lookups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.modelAttempts,
		m.modelDuration,
		m.stageDuration,
		m.cacheLookups,
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) ObserveAttempt(backend optimizer.BackendID, _ int, elapsed time.Duration, err error) {
	m.modelAttempts.WithLabelValues(string(backend), outcome(err)).Inc()
	m.modelDuration.WithLabelValues(string(backend)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveStage(stage optimizer.Stage, elapsed time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage.String(), outcome(err)).Observe(elapsed.Seconds())
}

// ObserveCache counts a summary cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
