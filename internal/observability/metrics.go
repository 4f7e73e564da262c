package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transition outcomes recorded by RecordTransition.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPErrorsTotal      *prometheus.CounterVec
	ResultTransitions    *prometheus.CounterVec
	ResultsUploadedTotal prometheus.Counter
	LoginAttemptsTotal   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_errors_total",
				Help: "Error responses by error code",
			},
			[]string{"method", "route", "code"},
		),
		ResultTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "result_transitions_total",
				Help: "Batch workflow transitions by outcome",
			},
			[]string{"transition", "outcome"},
		),
		ResultsUploadedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "results_uploaded_total",
				Help: "Result records created through uploads",
			},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
			m.HTTPErrorsTotal,
			m.ResultTransitions,
			m.ResultsUploadedTotal,
			m.LoginAttemptsTotal,
		)
	}
	return m
}

// RecordRequest observes a finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.HTTPErrorsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordTransition counts one batch transition attempt.
func (m *Metrics) RecordTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.ResultTransitions.WithLabelValues(transition, outcome).Inc()
}

// RecordUpload counts created result records.
func (m *Metrics) RecordUpload(count int) {
	if m == nil {
		return
	}
	m.ResultsUploadedTotal.Add(float64(count))
}

// RecordLogin counts a login attempt; success is false for any rejected attempt.
func (m *Metrics) RecordLogin(success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}
