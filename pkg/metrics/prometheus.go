package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowline_outbox_published_total",
			Help: "Total number of outbox messages delivered to the bus",
		},
		[]string{"aggregate"},
	)

	OutboxRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowline_outbox_retries_total",
			Help: "Total number of transient delivery failures",
		},
		[]string{"aggregate"},
	)

	OutboxDeadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowline_outbox_dead_total",
			Help: "Total number of messages parked as undeliverable",
		},
		[]string{"aggregate"},
	)

	OutboxCleanedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowline_outbox_cleaned_total",
			Help: "Total number of processed messages pruned by the cleaner",
		},
		[]string{"aggregate"},
	)

	OutboxBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowline_outbox_batch_duration_seconds",
			Help:    "Duration of one outbox processing batch",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"aggregate"},
	)
)
