package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "routing",
	Subsystem: "router",
	Name:      "lookups_total",
	Help:      "Total number of entity store lookups broken down by entity, operation and store.",
}, []string{"entity", "operation", "store"})

func recordLookup(entity Entity, op Operation, store Store) {
	lookups.With(prometheus.Labels{
		"entity":    string(NormalizeEntity(entity)),
		"operation": string(op),
		"store":     string(store),
	}).Inc()
}
