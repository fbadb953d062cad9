// Package observability holds the Prometheus metrics exported by the
// gateway.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResponsesFormatted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewire_responses_formatted_total",
			Help: "Provider replies converted to the canonical response shape",
		},
		[]string{"provider", "type", "outcome"},
	)

	AssetsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewire_assets_persisted_total",
			Help: "Generated media assets uploaded to object storage",
		},
		[]string{"source", "outcome"},
	)

	AssetBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatewire_asset_bytes_total",
			Help: "Bytes of generated media uploaded to object storage",
		},
	)

	StreamFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewire_stream_frames_total",
			Help: "Binary event-stream frames seen by the streaming decoder",
		},
		[]string{"outcome"},
	)

	StreamResyncBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatewire_stream_resync_bytes_total",
			Help: "Bytes skipped while resynchronizing malformed binary streams",
		},
	)

	AsyncPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewire_async_polls_total",
			Help: "Status polls of asynchronous provider jobs by resulting status",
		},
		[]string{"provider", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatewire_upstream_request_duration_seconds",
			Help:    "Duration of upstream provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "category", "mode"},
	)

	// CircuitState is 0 when closed, 1 when half-open and 2 when open.
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gatewire_upstream_circuit_state",
			Help: "Upstream circuit breaker state per provider",
		},
		[]string{"provider"},
	)
)

// ObserveUpstream records the duration of an upstream call started at start.
func ObserveUpstream(provider, category, mode string, start time.Time) {
	UpstreamDuration.WithLabelValues(provider, category, mode).Observe(time.Since(start).Seconds())
}

// Outcome maps an error to the "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
