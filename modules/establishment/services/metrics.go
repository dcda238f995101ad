package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hierarchyOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "establishment",
		Subsystem: "hierarchy",
		Name:      "operations_total",
		Help:      "Hierarchy mutations by operation and result.",
	}, []string{"operation", "result"})

	hierarchyTraversalSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "establishment",
		Subsystem: "hierarchy",
		Name:      "traversal_nodes",
		Help:      "Number of nodes returned by a hierarchy traversal.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"direction"})

	accessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "establishment",
		Subsystem: "access",
		Name:      "decisions_total",
		Help:      "Node-scoped access decisions by check and result.",
	}, []string{"check", "result"})
)

func recordOperation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	hierarchyOperations.WithLabelValues(op, result).Inc()
}

func recordDecision(check string, allowed bool) {
	result := "allow"
	if !allowed {
		result = "deny"
	}
	accessDecisions.WithLabelValues(check, result).Inc()
}
