package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCleanupMetrics() {
	r.CleanupFailuresTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "txscope_cleanup_failures_total",
			Help: "Total number of implicit rollbacks that failed while a scope was closing",
		},
		[]string{"mode", "kind"},
	)
}
