package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	PhaseIngest = "ingest"
	PhaseBuild  = "build"
	PhaseSolve  = "solve"

	OutcomeSuccess    = "success"
	OutcomeInfeasible = "infeasible"
	OutcomeInvalid    = "invalid"
	OutcomeError      = "error"
)

// Metrics instruments scheduling runs. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	phaseDuration   *prometheus.HistogramVec
	runs            *prometheus.CounterVec
	warnings        prometheus.Counter
	variables       prometheus.Gauge
	constraints     prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	phaseDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_phase_duration_seconds",
		Help:    "Duration of each phase of a scheduling run",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"phase"})

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_runs_total",
		Help: "Total number of scheduling runs by outcome",
	}, []string{"outcome"})

	warnings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_warnings_total",
		Help: "Total number of scheduling warnings",
	})

	variables := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_model_variables",
		Help: "Number of variables of the last built model",
	})

	constraints := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_model_constraints",
		Help: "Number of constraints of the last built model",
	})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	registry.MustRegister(phaseDuration, runs, warnings, variables, constraints, requestDuration)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		phaseDuration:   phaseDuration,
		runs:            runs,
		warnings:        warnings,
		variables:       variables,
		constraints:     constraints,
		requestDuration: requestDuration,
	}
}

// Handler exposes the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Metrics) ObservePhase(phase string, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

func (m *Metrics) RecordRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetModelSize(variables, constraints int) {
	if m == nil {
		return
	}
	m.variables.Set(float64(variables))
	m.constraints.Set(float64(constraints))
}

func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Observe(duration.Seconds())
}

// WarningSink counts every warning it receives
func (m *Metrics) WarningSink() model.WarningSink {
	return model.WarningFunc(func(string) {
		if m != nil {
			m.warnings.Inc()
		}
	})
}

// WriteTextfile dumps the current metrics in the node exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %v: %w", path, err)
	}
	return nil
}
