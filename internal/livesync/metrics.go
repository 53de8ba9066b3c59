package livesync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activePollers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mentorlink_livesync_active_pollers",
		Help: "Pollers currently running",
	}, []string{"view"})

	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentorlink_livesync_deliveries_total",
		Help: "Fetch results handed to a consumer",
	}, []string{"view"})

	discarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentorlink_livesync_discarded_total",
		Help: "Fetch results dropped because the poller was deactivated",
	}, []string{"view"})

	skippedTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentorlink_livesync_skipped_ticks_total",
		Help: "Scheduled fetches skipped because the previous fetch was still running",
	}, []string{"view"})

	fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentorlink_livesync_fetch_errors_total",
		Help: "Failed fetches",
	}, []string{"view"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mentorlink_livesync_fetch_duration_seconds",
		Help:    "Time spent fetching a view",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})
)
