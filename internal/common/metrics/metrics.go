package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "apply_submissions_started_total",
			Help: "Total number of submission pipeline runs started",
		},
	)

	SubmissionsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "apply_submissions_completed_total",
			Help: "Total number of submission pipeline runs that succeeded",
		},
	)

	SubmissionsThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "apply_submissions_throttled_total",
			Help: "Total number of submissions rejected by the resubmit guard",
		},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_stage_failures_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage", "category", "fatal"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "apply_stage_duration_seconds",
			Help: "Duration of pipeline stage execution in seconds",
		},
		[]string{"stage"},
	)

	DraftSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_draft_saves_total",
			Help: "Total number of draft store writes",
		},
		[]string{"result"},
	)

	DocumentsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_documents_rejected_total",
			Help: "Total number of uploaded files rejected by validation",
		},
		[]string{"slot", "reason"},
	)
)
