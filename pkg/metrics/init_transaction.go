package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTransactionMetrics() {
	r.TransactionsBegunTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "txscope_transactions_begun_total",
			Help: "Total number of transactions successfully begun",
		},
		[]string{"mode"},
	)

	r.TransactionsCommittedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "txscope_transactions_committed_total",
			Help: "Total number of transactions committed",
		},
		[]string{"mode"},
	)

	r.TransactionsRolledBackTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "txscope_transactions_rolled_back_total",
			Help: "Total number of transactions rolled back when their scope closed",
		},
		[]string{"mode"},
	)

	r.TransactionStatementErrors = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "txscope_statement_errors_total",
			Help: "Total number of control statements rejected by the connection",
		},
		[]string{"operation"},
	)

	r.TransactionsOpen = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "txscope_transactions_open",
			Help: "Number of transaction scopes currently open",
		},
	)

	r.TransactionLifetime = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txscope_transaction_lifetime_seconds",
			Help:    "Time from BEGIN to COMMIT or implicit ROLLBACK in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"mode", "outcome"},
	)
}
