// Package monitoring exposes the service's Prometheus metrics.
package monitoring

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bioage-mcp-server/internal/domain"
)

// Metrics holds every collector the service records to. Each instance owns its
// registry so tests and multiple servers do not collide.
type Metrics struct {
	registry *prometheus.Registry

	AssessmentsTotal  *prometheus.CounterVec
	EngineFallbacks   prometheus.Counter
	EngineDivergence  prometheus.Histogram
	BiologicalAgeGap  prometheus.Histogram
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors, plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		AssessmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bioage_assessments_total",
				Help: "Total number of completed assessments",
			},
			[]string{"engine", "health"},
		),

		EngineFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bioage_engine_fallbacks_total",
				Help: "Assessments served by the fallback engine after the primary failed",
			},
		),

		EngineDivergence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bioage_engine_divergence_years",
				Help:    "Absolute biological age difference between the primary and baseline engines",
				Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13},
			},
		),

		BiologicalAgeGap: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bioage_biological_age_gap_years",
				Help:    "Biological minus chronological age of completed assessments",
				Buckets: []float64{-10, -5, -2, 0, 2, 5, 10},
			},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bioage_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bioage_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.AssessmentsTotal,
		m.EngineFallbacks,
		m.EngineDivergence,
		m.BiologicalAgeGap,
		m.HTTPRequestsTotal,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAssessment records a completed assessment.
func (m *Metrics) ObserveAssessment(result *domain.AssessmentResult) {
	if m == nil || result == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(result.Engine, string(result.OverallHealth)).Inc()
	m.BiologicalAgeGap.Observe(result.AgeGap())
}

// ObserveFallback records a primary engine failure served by the fallback.
func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.EngineFallbacks.Inc()
}

// ObserveDivergence records the biological age difference between two engines.
func (m *Metrics) ObserveDivergence(years float64) {
	if m == nil {
		return
	}
	if years < 0 {
		years = -years
	}
	m.EngineDivergence.Observe(years)
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}
