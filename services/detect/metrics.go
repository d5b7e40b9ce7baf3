package detect

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var findingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "speclens",
	Subsystem: "detect",
	Name:      "findings_total",
	Help:      "Ambiguity findings emitted, by severity.",
}, []string{"severity"})
