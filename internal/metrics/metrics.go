// Package metrics holds the package-level Prometheus registrations for
// the retry engine, scheduler, and audio subsystems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetryTaskSubmittedTotal counts tasks submitted to the retry engine.
	RetryTaskSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadehub_retry_task_submitted_total",
		Help: "Total number of retry tasks submitted.",
	})

	// RetryTaskSupersededTotal counts tasks cancelled by a newer command
	// for the same shade.
	RetryTaskSupersededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadehub_retry_task_superseded_total",
		Help: "Total number of retry tasks cancelled by a newer command for the same shade.",
	})

	// RetryZombiesDetectedTotal counts tasks flagged suspicious by the
	// zombie monitor (older than 5 minutes).
	RetryZombiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadehub_retry_zombies_detected_total",
		Help: "Total number of retry tasks flagged suspicious by the zombie monitor.",
	})

	// RetryZombiesCleanedTotal counts tasks force-cancelled by the
	// zombie monitor (older than 1 hour).
	RetryZombiesCleanedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadehub_retry_zombies_cleaned_total",
		Help: "Total number of retry tasks force-cancelled by the zombie monitor.",
	})

	// RetryTimeoutKillsTotal counts tasks terminated by the task-level
	// 60s timeout.
	RetryTimeoutKillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadehub_retry_timeout_kills_total",
		Help: "Total number of retry tasks terminated by the task-level timeout.",
	})

	// RetryCurrentWarnings tracks the current count of suspicious
	// (not yet reaped) tasks.
	RetryCurrentWarnings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shadehub_retry_current_warnings",
		Help: "Current number of retry tasks flagged suspicious but not yet reaped.",
	})

	// RetryAttemptTotal counts individual serial-write attempts by outcome.
	RetryAttemptTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shadehub_retry_attempt_total",
		Help: "Total number of retry-engine attempts, by outcome.",
	}, []string{"outcome"})

	// SchedulerJobsActive tracks the number of materialized scheduler jobs.
	SchedulerJobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shadehub_scheduler_jobs_active",
		Help: "Current number of materialized scheduler jobs.",
	})

	// SchedulerSceneSkippedTotal counts scene firings skipped by the
	// home/away gate.
	SchedulerSceneSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shadehub_scheduler_scene_skipped_total",
		Help: "Total number of scheduled scene firings skipped by the home/away gate, by scene.",
	}, []string{"scene"})

	// SchedulerMissedRecoveredTotal counts missed-schedule recovery firings.
	SchedulerMissedRecoveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shadehub_scheduler_missed_recovered_total",
		Help: "Total number of missed schedules recovered on init or resume-from-sleep, by scene.",
	}, []string{"scene"})

	// AudioStartupTotal counts audio startup attempts by outcome.
	AudioStartupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shadehub_audio_startup_total",
		Help: "Total number of audio startup attempts, by outcome (fast, slow, skipped, failed).",
	}, []string{"outcome"})

	// HTTPRequestDuration tracks HTTP handler latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shadehub_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// HTTPRequestsInFlight tracks concurrently-served HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shadehub_http_requests_in_flight",
		Help: "Current number of HTTP requests being served.",
	})
)
