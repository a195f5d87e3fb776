package txscope

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrInvalidMode      = errors.New("invalid transaction mode")
	ErrUnknownDialect   = errors.New("unknown SQL dialect")
	ErrAlreadyCommitted = errors.New("transaction already committed")
	ErrScopeClosed      = errors.New("transaction scope is closed")
	ErrNilExecutor      = errors.New("nil executor")
)

// StatementError wraps an error returned by the connection for one control
// statement. The driver's error stays reachable through errors.Is and errors.As.
type StatementError struct {
	Op        string // Operation that failed (e.g., "begin", "commit", "savepoint")
	Statement string // Exact statement text sent to the connection
	ScopeID   string
	Cause     error
}

// Error implements the error interface.
func (e *StatementError) Error() string {
	if e.ScopeID != "" {
		return fmt.Sprintf("%s (scope %s): %s: %v", e.Op, e.ScopeID, e.Statement, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Statement, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StatementError) Unwrap() error {
	return e.Cause
}

// IsStatementError reports whether err came from the connection rather than
// from misuse of a scope.
func IsStatementError(err error) bool {
	var se *StatementError
	return errors.As(err, &se)
}
