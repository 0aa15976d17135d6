// Package metrics provides Prometheus metrics for the costing service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Costing metrics
	CalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costworks_calculations_total",
			Help: "Total number of deterministic cost evaluations",
		},
		[]string{"status"},
	)

	SimulationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costworks_simulations_total",
			Help: "Total number of Monte-Carlo runs",
		},
		[]string{"status"},
	)

	SimulationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "costworks_simulation_duration_seconds",
			Help:    "Wall time of Monte-Carlo runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	SimulationIterations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "costworks_simulation_iterations_total",
			Help: "Total Monte-Carlo iterations sampled",
		},
	)

	// Data quality metrics
	AuditIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costworks_audit_issues_total",
			Help: "Data quality issues found, by table and severity",
		},
		[]string{"table", "severity"},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costworks_http_requests_total",
			Help: "HTTP requests handled",
		},
		[]string{"method", "route", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "costworks_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordCalculation counts one cost evaluation.
func RecordCalculation(err error) {
	CalculationsTotal.WithLabelValues(status(err)).Inc()
}

// RecordSimulation counts one Monte-Carlo run with its size and duration.
func RecordSimulation(iterations int, d time.Duration, err error) {
	SimulationsTotal.WithLabelValues(status(err)).Inc()
	if err != nil {
		return
	}
	SimulationDuration.Observe(d.Seconds())
	SimulationIterations.Add(float64(iterations))
}

// RecordAuditIssue counts one data quality issue.
func RecordAuditIssue(table, severity string) {
	AuditIssuesTotal.WithLabelValues(table, severity).Inc()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, code string, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
