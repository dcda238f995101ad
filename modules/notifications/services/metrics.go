package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notifications",
		Subsystem: "dispatcher",
		Name:      "attempts_total",
		Help:      "Delivery attempts by channel and result.",
	}, []string{"channel", "result"})

	dispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "notifications",
		Subsystem: "dispatcher",
		Name:      "attempt_duration_seconds",
		Help:      "Duration of delivery attempts by channel.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"channel"})

	dispatchSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notifications",
		Subsystem: "dispatcher",
		Name:      "skipped_total",
		Help:      "Channels skipped for lack of an address or a sender.",
	}, []string{"channel"})
)
