// Package observability holds the Prometheus collectors and the tracer setup.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Messages persisted, by sender kind",
	}, []string{"sender_type"})

	MessagesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_read_total",
		Help: "Messages flipped to read by read receipts",
	})

	BroadcastFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_broadcast_failures_total",
		Help: "Publishes to a chat channel that failed and were dropped",
	}, []string{"event"})

	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "In-app notifications stored, by type",
	}, []string{"type"})

	LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "Point transactions written, by direction",
	}, []string{"direction"})

	FeaturedExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "featured_projects_expired_total",
		Help: "Featured placements moved to expired",
	})

	MailFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mail_failures_total",
		Help: "Emails that could not be handed to the mailer",
	})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by scope",
	}, []string{"scope"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route", "status"})
)
