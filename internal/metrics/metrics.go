// Package metrics holds the Prometheus collectors designsync exports on
// /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
	OutcomeConflict = "conflict"
)

var (
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "designsync_webhook_events_total",
			Help: "GitHub webhook deliveries received, by event and action",
		},
		[]string{"event", "action"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "designsync_pipeline_runs_total",
			Help: "Review and meeting pipeline runs, by outcome",
		},
		[]string{"pipeline", "outcome"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "designsync_pipeline_duration_seconds",
			Help:    "Wall time of pipeline runs",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"pipeline"},
	)

	ModelRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "designsync_model_requests_total",
			Help: "Language model calls, by family and outcome",
		},
		[]string{"family", "outcome"},
	)

	DocumentWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "designsync_document_writes_total",
			Help: "Design document writes, by outcome",
		},
		[]string{"outcome"},
	)
)

// ObservePipeline records one pipeline run that started at start.
func ObservePipeline(pipeline, outcome string, start time.Time) {
	PipelineRuns.WithLabelValues(pipeline, outcome).Inc()
	PipelineDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
}
