// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GateProbeAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_gate_probe_attempts_total",
			Help: "Total number of search endpoint probes issued by readiness gates",
		},
		[]string{"gate", "outcome"},
	)

	GateChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_gate_checks_total",
			Help: "Total number of readiness gate checks by terminal outcome",
		},
		[]string{"gate", "complete"},
	)

	DispatchedJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_submitted_total",
			Help: "Total number of per-user notification jobs submitted",
		},
		[]string{"frequency", "retried"},
	)

	DispatchRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dispatch_run_duration_seconds",
			Help: "Duration of a full dispatch run in seconds",
		},
		[]string{"frequency"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notification emails sent by the worker",
		},
		[]string{"frequency", "status"},
	)
)
