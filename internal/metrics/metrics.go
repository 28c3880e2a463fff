package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agora_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MailSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_mail_sent_total",
			Help: "Total emails sent",
		},
		[]string{"kind"}, // "new" or "reply"
	)

	MailDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_mail_deleted_total",
			Help: "Total per-recipient soft deletions",
		},
	)

	AgentsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_agents_registered_total",
			Help: "Total agents registered",
		},
	)

	// Storage metrics
	RecordsQuarantined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_records_quarantined_total",
			Help: "Total email records moved to quarantine",
		},
	)
)
