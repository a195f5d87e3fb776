package metrics

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()

	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.TransactionsBegunTotal == nil {
		t.Error("TransactionsBegunTotal not initialized")
	}
	if r.TransactionLifetime == nil {
		t.Error("TransactionLifetime not initialized")
	}
	if r.SavepointOperationsTotal == nil {
		t.Error("SavepointOperationsTotal not initialized")
	}
	if r.CleanupFailuresTotal == nil {
		t.Error("CleanupFailuresTotal not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordTransactionLifecycle(t *testing.T) {
	r := NewRegistry()

	r.RecordBegin("immediate")
	r.RecordBegin("immediate")
	r.RecordBegin("deferred")

	if got := gaugeValue(t, r.TransactionsOpen); got != 3 {
		t.Errorf("open transactions = %v, want 3", got)
	}

	r.RecordCommit("immediate", 10*time.Millisecond)
	r.RecordRollback("deferred", 5*time.Millisecond)

	if got := counterValue(t, r.TransactionsBegunTotal, "immediate"); got != 2 {
		t.Errorf("begun{immediate} = %v, want 2", got)
	}
	if got := counterValue(t, r.TransactionsCommittedTotal, "immediate"); got != 1 {
		t.Errorf("committed{immediate} = %v, want 1", got)
	}
	if got := counterValue(t, r.TransactionsRolledBackTotal, "deferred"); got != 1 {
		t.Errorf("rolled_back{deferred} = %v, want 1", got)
	}
	if got := gaugeValue(t, r.TransactionsOpen); got != 1 {
		t.Errorf("open transactions = %v, want 1", got)
	}
}

func TestRecordSavepoint(t *testing.T) {
	r := NewRegistry()

	r.RecordSavepoint("savepoint", nil)
	r.RecordSavepoint("savepoint", nil)
	r.RecordSavepoint("rollback_to", errors.New("no such savepoint"))

	if got := counterValue(t, r.SavepointOperationsTotal, "savepoint", "success"); got != 2 {
		t.Errorf("savepoint success = %v, want 2", got)
	}
	if got := counterValue(t, r.SavepointOperationsTotal, "rollback_to", "error"); got != 1 {
		t.Errorf("rollback_to error = %v, want 1", got)
	}
}

func TestRecordCleanupFailureAndStatementError(t *testing.T) {
	r := NewRegistry()

	r.RecordCleanupFailure("exclusive", "error")
	r.RecordCleanupFailure("exclusive", "panic")
	r.RecordStatementError("commit")

	if got := counterValue(t, r.CleanupFailuresTotal, "exclusive", "panic"); got != 1 {
		t.Errorf("cleanup failures{panic} = %v, want 1", got)
	}
	if got := counterValue(t, r.TransactionStatementErrors, "commit"); got != 1 {
		t.Errorf("statement errors{commit} = %v, want 1", got)
	}
}

func TestWriteText(t *testing.T) {
	r := NewRegistry()
	r.RecordBegin("deferred")
	r.RecordCommit("deferred", time.Millisecond)

	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"txscope_transactions_begun_total",
		`txscope_transactions_committed_total{mode="deferred"} 1`,
		"txscope_transaction_lifetime_seconds_bucket",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("WriteText output missing %q", want)
		}
	}
}
