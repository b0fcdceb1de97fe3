package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clawchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clawchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	AgentsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clawchat_agents_registered_total",
			Help: "Total agents registered",
		},
	)

	EnvelopesSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clawchat_envelopes_submitted_total",
			Help: "Total encrypted envelopes accepted for delivery",
		},
	)

	InboxFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clawchat_inbox_fetches_total",
			Help: "Total inbox drain requests",
		},
	)

	RoomMessagesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clawchat_room_messages_posted_total",
			Help: "Total plaintext room messages posted",
		},
	)
)
