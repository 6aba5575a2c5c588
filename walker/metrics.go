package walker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	nodesRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pywalk_nodes_registered_total",
		Help: "Nodes defined in a registry, by kind",
	}, []string{"kind"})

	nodesDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pywalk_nodes_degraded_total",
		Help: "Nodes registered as unconvertible because their source was unavailable",
	})

	unresolvedFreeVariables = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pywalk_unresolved_free_variables_total",
		Help: "Free variables that resolved to nothing",
	})

	sourceParses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pywalk_source_parses_total",
		Help: "Source files parsed while registering definitions",
	})
)
