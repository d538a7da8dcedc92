// Package observability provides Prometheus metrics for the gateway:
// request volume, detector/scrubber latency, tool-channel health, and
// observer-bus drop accounting.
package observability

import "github.com/prometheus/client_golang/prometheus"

// DetectorBuckets covers a single downstream classification call,
// bounded by the Detector's 15s timeout.
var DetectorBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15}

// ScrubBuckets covers the in-process scrubbing algorithm, which never
// makes a network call and should complete in low milliseconds.
var ScrubBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

var (
	// RequestsTotal counts gateway HTTP requests by route and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrubgate_requests_total",
			Help: "Total gateway HTTP requests",
		},
		[]string{"route", "status"},
	)

	// RequestDuration records gateway HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrubgate_request_duration_seconds",
			Help:    "Gateway request duration",
			Buckets: DetectorBuckets,
		},
		[]string{"route"},
	)

	// DetectorLatency records Detector classification call latency.
	DetectorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrubgate_detector_latency_seconds",
			Help:    "Detector classification latency",
			Buckets: DetectorBuckets,
		},
		[]string{"category"},
	)

	// DetectorErrorsTotal counts Detector failures by cause.
	DetectorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrubgate_detector_errors_total",
			Help: "Detector failures, fail-closed",
		},
		[]string{"reason"},
	)

	// ScrubLatency records Scrubber call latency (in-process, prompt or file mode).
	ScrubLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrubgate_scrub_latency_seconds",
			Help:    "Scrubber call latency",
			Buckets: ScrubBuckets,
		},
		[]string{"mode"},
	)

	// ScrubItemsTotal counts scrubbed items by item type.
	ScrubItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrubgate_scrub_items_total",
			Help: "Scrubbed items by item type",
		},
		[]string{"item_type"},
	)

	// ToolChannelRestartsTotal counts ToolServer Channel crash-recovery respawns.
	ToolChannelRestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scrubgate_toolchannel_restarts_total",
			Help: "ToolServer Channel crash-recovery respawns",
		},
	)

	// ObserverDropsTotal counts messages dropped for a slow observer subscriber.
	ObserverDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scrubgate_observer_drops_total",
			Help: "Observer Bus messages dropped due to a full subscriber buffer",
		},
	)

	// ObserverConnectionsActive tracks live observer WebSocket connections.
	ObserverConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrubgate_observer_connections_active",
			Help: "Active observer WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		DetectorLatency,
		DetectorErrorsTotal,
		ScrubLatency,
		ScrubItemsTotal,
		ToolChannelRestartsTotal,
		ObserverDropsTotal,
		ObserverConnectionsActive,
	)
}
