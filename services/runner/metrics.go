package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speclens",
		Subsystem: "runner",
		Name:      "queries_total",
		Help:      "Model queries issued, by model and mode.",
	}, []string{"model", "mode"})

	queryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speclens",
		Subsystem: "runner",
		Name:      "query_errors_total",
		Help:      "Model queries that returned an error, by model.",
	}, []string{"model"})

	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speclens",
		Subsystem: "runner",
		Name:      "cache_hits_total",
		Help:      "Stateless queries served from the local response cache.",
	}, []string{"model"})

	sessionFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speclens",
		Subsystem: "runner",
		Name:      "session_fallbacks_total",
		Help:      "Mid-run session losses that degraded a model to stateless.",
	}, []string{"model"})
)
