package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSavepointMetrics() {
	r.SavepointOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "txscope_savepoint_operations_total",
			Help: "Total number of savepoint statements issued",
		},
		[]string{"operation", "status"},
	)
}
