// Package metrics holds the Prometheus metrics for pipeline runs, data
// quality, and the HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for vigil. Each instance carries its
// own prometheus registry, so tests can build as many as they need.
type Registry struct {
	registry *prometheus.Registry

	// Pipeline run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	LastRun     *prometheus.GaugeVec

	// Data quality metrics
	ClassCoverage *prometheus.GaugeVec
	IssuesFiled   prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// NewRegistry creates a metrics registry with all vigil metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_runs_total",
				Help: "Total number of pipeline runs by pipeline and status",
			},
			[]string{"pipeline", "status"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vigil_run_duration_seconds",
				Help:    "Duration of pipeline runs in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"pipeline"},
		),

		LastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vigil_last_run_timestamp_seconds",
				Help: "Unix timestamp of the last completed run per pipeline",
			},
			[]string{"pipeline"},
		),

		ClassCoverage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vigil_class_coverage",
				Help: "Data coverage ratio per asset class (0.0 to 1.0)",
			},
			[]string{"asset_class"},
		),

		IssuesFiled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vigil_issues_filed_total",
				Help: "Total number of data quality issues filed",
			},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status",
			},
			[]string{"method", "path", "status"},
		),
	}

	r.registry.MustRegister(
		r.RunsTotal,
		r.RunDuration,
		r.LastRun,
		r.ClassCoverage,
		r.IssuesFiled,
		r.HTTPRequests,
	)

	return r
}

// RecordRun records one finished pipeline run.
func (r *Registry) RecordRun(pipeline, status string, duration time.Duration) {
	r.RunsTotal.WithLabelValues(pipeline, status).Inc()
	r.RunDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
	r.LastRun.WithLabelValues(pipeline).SetToCurrentTime()
}

// RecordCoverage records the coverage ratio for one asset class.
func (r *Registry) RecordCoverage(assetClass string, coverage float64) {
	r.ClassCoverage.WithLabelValues(assetClass).Set(coverage)
}

// RecordIssueFiled counts a data quality issue filed upstream.
func (r *Registry) RecordIssueFiled() {
	r.IssuesFiled.Inc()
}

// RecordHTTPRequest counts one handled HTTP request.
func (r *Registry) RecordHTTPRequest(method, path string, status int) {
	r.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// Handler returns the Prometheus scrape endpoint handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
