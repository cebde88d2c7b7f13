// Package metrics exposes Prometheus counters for summary runs and HTTP traffic.
//
// Everything registers on a private registry (not the global default) so
// tests can build as many instances as they like.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shimizu-Technology/sommaire-api/internal/pipeline"
)

const namespace = "sommaire"

// Metrics holds every collector the server exports.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runsInFlight  prometheus.Gauge
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Finished summary runs by outcome and failing stage.",
		},
		[]string{"outcome", "stage"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Summary run duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Summary runs currently in progress.",
		},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	stageErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_errors_total",
			Help:      "Stage failures.",
		},
		[]string{"stage"},
	)
	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(runsTotal, runDuration, runsInFlight, stageDuration, stageErrors, requestTotal, requestDuration)

	return &Metrics{
		registry:        registry,
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		runsInFlight:    runsInFlight,
		stageDuration:   stageDuration,
		stageErrors:     stageErrors,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunStarted implements pipeline.Recorder.
func (m *Metrics) RunStarted() {
	m.runsInFlight.Inc()
}

// StageCompleted implements pipeline.Recorder.
func (m *Metrics) StageCompleted(stage pipeline.State, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(string(stage)).Inc()
	}
}

// RunFinished implements pipeline.Recorder.
func (m *Metrics) RunFinished(outcome, failedStage pipeline.State, d time.Duration) {
	m.runsInFlight.Dec()
	m.runsTotal.WithLabelValues(string(outcome), string(failedStage)).Inc()
	m.runDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

// Middleware counts requests by route template, so /summaries/:id is one
// series rather than one per ID.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
