// Package metrics holds the Prometheus collectors of the analyzer. A nil
// *Metrics is valid and records nothing, so library callers and tests can
// skip instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contracts"

type Metrics struct {
	ProviderCalls        *prometheus.CounterVec
	Failovers            *prometheus.CounterVec
	PageExtractions      *prometheus.CounterVec
	ExtractionConfidence prometheus.Histogram
	PipelineRuns         *prometheus.CounterVec
	PipelineDuration     prometheus.Histogram
	QueueJobs            *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New registers every collector on reg. Use prometheus.DefaultRegisterer in
// binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProviderCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Provider attempts by capability, credential and outcome.",
		}, []string{"capability", "provider", "outcome"}),
		Failovers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failovers_total",
			Help:      "Times a failover chain moved on to the next provider.",
		}, []string{"capability"}),
		PageExtractions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_extractions_total",
			Help:      "Extracted pages by source and quality tier.",
		}, []string{"source", "tier"}),
		ExtractionConfidence: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_confidence",
			Help:      "Per-page extraction confidence.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		PipelineRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by final status and failing stage.",
		}, []string{"status", "stage"}),
		PipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of a full pipeline run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		QueueJobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_jobs_total",
			Help:      "Inbox queue jobs by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ProviderCall(capability, provider, outcome string) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(capability, provider, outcome).Inc()
}

func (m *Metrics) Failover(capability string) {
	if m == nil {
		return
	}
	m.Failovers.WithLabelValues(capability).Inc()
}

func (m *Metrics) PageExtracted(source, tier string, confidence float64) {
	if m == nil {
		return
	}
	m.PageExtractions.WithLabelValues(source, tier).Inc()
	m.ExtractionConfidence.Observe(confidence)
}

// PipelineRun records a finished run. stage is empty for successful runs.
func (m *Metrics) PipelineRun(status, stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(status, stage).Inc()
	m.PipelineDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) QueueJob(outcome string) {
	if m == nil {
		return
	}
	m.QueueJobs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) HTTPRequest(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
