package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelMethod = "method"
	LabelRoute  = "route"
	LabelStatus = "status"
	LabelKind   = "kind"
	LabelState  = "state"
	LabelResult = "result"
)

// HTTPLatencyBuckets are tuned for API calls that mostly finish well under a second.
var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelRoute, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidtube_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelRoute},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidtube_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// Domain metrics
var (
	EdgeToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_edge_toggles_total",
			Help: "Like and subscription toggles by edge kind and resulting state",
		},
		[]string{LabelKind, LabelState},
	)

	MediaCleanups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidtube_media_cleanups_total",
			Help: "Object store deletions of superseded or rolled back media",
		},
		[]string{LabelResult},
	)
)

// RecordToggle counts one edge toggle.
func RecordToggle(kind string, active bool) {
	state := "removed"
	if active {
		state = "added"
	}
	EdgeToggles.WithLabelValues(kind, state).Inc()
}

// RecordCleanup counts one media deletion attempt.
func RecordCleanup(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	MediaCleanups.WithLabelValues(result).Inc()
}
