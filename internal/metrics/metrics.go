package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Analysis runs by outcome: ok, no_data, failed.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_runs_total",
		Help: "The total number of analysis runs by outcome.",
	}, []string{"status"})

	SpikesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_spikes_detected_total",
		Help: "The total number of spike events detected by kind.",
	}, []string{"kind"})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_last_run_timestamp_seconds",
		Help: "Unix time of the last successful analysis run.",
	})

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tracker_fetch_duration_seconds",
			Help: "Duration of market data API requests.",
		},
		[]string{"endpoint"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tracker_http_request_duration_seconds",
			Help: "Duration of dashboard HTTP requests.",
		},
		[]string{"path"},
	)
)
