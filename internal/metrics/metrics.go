package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_sent_total",
			Help: "Total notification jobs delivered",
		},
	)

	JobsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Total notification jobs that terminated as failed",
		},
	)

	JobsRetried = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_retried_total",
			Help: "Total jobs bounced back to pending after a rate-limit error",
		},
	)

	JobsReclaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_reclaimed_total",
			Help: "Total stuck jobs reset to pending by the fail-safe sweep",
		},
	)

	RecapJobsEnqueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recap_jobs_enqueued_total",
			Help: "Total recap jobs produced by the schedulers",
		},
	)

	SessionReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "session_reconnects_total",
			Help: "Total WhatsApp reconnect attempts",
		},
	)
)

func Init() {
	prometheus.MustRegister(JobsSent)
	prometheus.MustRegister(JobsFailed)
	prometheus.MustRegister(JobsRetried)
	prometheus.MustRegister(JobsReclaimed)
	prometheus.MustRegister(RecapJobsEnqueued)
	prometheus.MustRegister(SessionReconnects)
}
