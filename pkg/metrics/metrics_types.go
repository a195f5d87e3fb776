package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all transaction-scope metrics for the process
type Registry struct {
	// Transaction Metrics
	TransactionsBegunTotal      *prometheus.CounterVec
	TransactionsCommittedTotal  *prometheus.CounterVec
	TransactionsRolledBackTotal *prometheus.CounterVec
	TransactionStatementErrors  *prometheus.CounterVec
	TransactionsOpen            prometheus.Gauge
	TransactionLifetime         *prometheus.HistogramVec

	// Savepoint Metrics
	SavepointOperationsTotal *prometheus.CounterVec

	// Cleanup Metrics
	CleanupFailuresTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initTransactionMetrics()
	r.initSavepointMetrics()
	r.initCleanupMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
