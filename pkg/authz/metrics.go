package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authz",
		Subsystem: "capability",
		Name:      "decisions_total",
		Help:      "Total number of capability checks broken down by capability and result.",
	}, []string{"capability", "result"})

	decisionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "authz",
		Subsystem: "capability",
		Name:      "latency_seconds",
		Help:      "Latency distribution for capability checks.",
		Buckets: []float64{
			0.00005, 0.0001, 0.0005, 0.001,
			0.005, 0.01, 0.05, 0.1,
		},
	}, []string{"result"})
)

func recordDecision(req Request, allowed bool, latency time.Duration) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	decisions.WithLabelValues(req.Object+":"+req.Action, result).Inc()
	decisionLatency.WithLabelValues(result).Observe(latency.Seconds())
}
