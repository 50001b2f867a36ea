package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics (operations server)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamelog_relay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamelog_relay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Intake
	EntriesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamelog_relay_entries_received_total",
			Help: "Log entries decoded and buffered",
		},
	)

	DecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamelog_relay_decode_failures_total",
			Help: "Bus messages dropped because the payload or topic was malformed",
		},
	)

	ChannelsBuffered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gamelog_relay_channels_buffered",
			Help: "Channels with entries waiting for the idle threshold",
		},
	)

	// Flush and dispatch
	Flushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamelog_relay_flushes_total",
			Help: "Channel buffers handed to the dispatcher",
		},
	)

	EntriesFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamelog_relay_entries_flushed_total",
			Help: "Log entries handed to the dispatcher",
		},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamelog_relay_messages_sent_total",
			Help: "Chat messages sent",
		},
		[]string{"kind"}, // "text", "image" or "composite"
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamelog_relay_send_failures_total",
			Help: "Chat sends that failed",
		},
		[]string{"reason"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gamelog_relay_dispatch_duration_seconds",
			Help:    "Time to dispatch one flushed channel buffer",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	CompositeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gamelog_relay_composite_duration_seconds",
			Help:    "Time to build one composite image",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	FaultsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamelog_relay_faults_recovered_total",
			Help: "Recoverable faults logged and skipped by the relay loop",
		},
		[]string{"op"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gamelog_relay_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)
