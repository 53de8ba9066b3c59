package collection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writeAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mentorlink_collection_write_attempts",
		Help:    "Compare-and-set attempts needed per successful write",
		Buckets: []float64{1, 2, 3, 5, 8, 13},
	}, []string{"collection"})

	writeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mentorlink_collection_write_duration_seconds",
		Help:    "Wall time of a successful write including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentorlink_collection_write_conflicts_total",
		Help: "Compare-and-set attempts that lost to a concurrent writer",
	}, []string{"collection"})

	writeContention = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentorlink_collection_write_contention_total",
		Help: "Writes that exhausted their retry budget",
	}, []string{"collection"})
)
