package metrics

import (
	"io"
	"time"

	"github.com/prometheus/common/expfmt"
)

// Outcome labels for TransactionLifetime
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
)

// RecordBegin records a transaction that was successfully begun
func (r *Registry) RecordBegin(mode string) {
	r.TransactionsBegunTotal.WithLabelValues(mode).Inc()
	r.TransactionsOpen.Inc()
}

// RecordCommit records a committed transaction and how long it was open
func (r *Registry) RecordCommit(mode string, lifetime time.Duration) {
	r.TransactionsCommittedTotal.WithLabelValues(mode).Inc()
	r.TransactionsOpen.Dec()
	r.TransactionLifetime.WithLabelValues(mode, OutcomeCommitted).Observe(lifetime.Seconds())
}

// RecordRollback records an implicit rollback issued by a closing scope,
// whether or not the ROLLBACK statement itself succeeded
func (r *Registry) RecordRollback(mode string, lifetime time.Duration) {
	r.TransactionsRolledBackTotal.WithLabelValues(mode).Inc()
	r.TransactionsOpen.Dec()
	r.TransactionLifetime.WithLabelValues(mode, OutcomeRolledBack).Observe(lifetime.Seconds())
}

// RecordStatementError records a control statement the connection rejected
func (r *Registry) RecordStatementError(operation string) {
	r.TransactionStatementErrors.WithLabelValues(operation).Inc()
}

// RecordSavepoint records a savepoint statement
func (r *Registry) RecordSavepoint(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.SavepointOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordCleanupFailure records a failed implicit rollback. kind is "error"
// when the connection returned an error and "panic" when it panicked.
func (r *Registry) RecordCleanupFailure(mode, kind string) {
	r.CleanupFailuresTotal.WithLabelValues(mode, kind).Inc()
}

// WriteText writes every registered metric in the Prometheus text format
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
