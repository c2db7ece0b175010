// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchbot_reactions_total",
			Help: "Reactions recorded, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	MatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchbot_matches_total",
			Help: "Matches created on mutual interest",
		},
	)

	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchbot_registrations_total",
			Help: "New identities, by whether a referrer was credited",
		},
		[]string{"referred"},
	)

	CandidatesExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchbot_candidates_exhausted_total",
			Help: "Browse requests that found no candidate even after clearing views",
		},
	)

	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchbot_bot_updates_total",
			Help: "Telegram updates handled, by type",
		},
		[]string{"type"},
	)

	NotificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchbot_notifications_failed_total",
			Help: "Best-effort outbound messages that could not be delivered",
		},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchbot_rate_limited_total",
			Help: "Actions rejected by the rate limiter",
		},
		[]string{"action"},
	)

	UsersPurged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchbot_users_purged_total",
			Help: "Accounts removed, by reason",
		},
		[]string{"reason"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "matchbot_job_duration_seconds",
			Help: "Maintenance job run time",
		},
		[]string{"job"},
	)
)

// ObserveJob records how long a job took.
func ObserveJob(job string, started time.Time) {
	JobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}
