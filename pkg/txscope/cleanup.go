package txscope

import (
	"fmt"

	"github.com/dd0wney/cluso-txscope/pkg/logging"
)

// CleanupFailure describes an implicit rollback that failed while a scope was
// closing. It is never returned to callers; Close hands it to the scope's
// CleanupHandler instead.
type CleanupFailure struct {
	ScopeID   string
	Mode      Mode
	Statement string
	// Err is set when the connection returned an error.
	Err error
	// Panic holds the recovered value when the connection panicked.
	Panic any
}

// Kind is "panic" when the connection panicked and "error" otherwise.
func (f *CleanupFailure) Kind() string {
	if f.Panic != nil {
		return "panic"
	}
	return "error"
}

func (f *CleanupFailure) Error() string {
	if f.Panic != nil {
		return fmt.Sprintf("implicit %s of scope %s panicked: %v", f.Statement, f.ScopeID, f.Panic)
	}
	return fmt.Sprintf("implicit %s of scope %s failed: %v", f.Statement, f.ScopeID, f.Err)
}

func (f *CleanupFailure) Unwrap() error {
	return f.Err
}

// CleanupHandler receives failures of the implicit rollback. It runs inside
// Close, possibly while a panic is unwinding, so it should not block.
type CleanupHandler func(*CleanupFailure)

// LogCleanupFailure returns the default handler: the failure is logged at
// ERROR and Close returns normally.
func LogCleanupFailure(logger logging.Logger) CleanupHandler {
	return func(f *CleanupFailure) {
		fields := []logging.Field{
			logging.ScopeID(f.ScopeID),
			logging.Mode(f.Mode.String()),
			logging.Statement(f.Statement),
			logging.String("kind", f.Kind()),
		}
		if f.Panic != nil {
			fields = append(fields, logging.Any("panic", fmt.Sprint(f.Panic)))
		} else {
			fields = append(fields, logging.Error(f.Err))
		}
		logger.Error("implicit rollback failed", fields...)
	}
}

// PanicOnCleanupFailure is the abort-style handler for callers that treat a
// failed rollback as fatal. It panics with the *CleanupFailure.
func PanicOnCleanupFailure(f *CleanupFailure) {
	panic(f)
}
