package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics (admin API)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "createvc_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "createvc_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Lifecycle metrics
	VoiceEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "createvc_voice_events_total",
			Help: "Total voice state events received",
		},
	)

	ChannelsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "createvc_channels_created_total",
			Help: "Total voice channels created from lobby joins",
		},
	)

	ChannelsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "createvc_channels_deleted_total",
			Help: "Total empty voice channels deleted",
		},
	)

	EventErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "createvc_event_errors_total",
			Help: "Total voice event handling failures",
		},
		[]string{"branch"}, // "create" or "delete"
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "createvc_store_latency_seconds",
			Help:    "Guild store operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)
)
