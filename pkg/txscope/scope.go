// Package txscope provides scoped transaction control over a borrowed SQL
// connection.
//
// A Scope issues BEGIN when it is opened, COMMIT at most once when asked,
// and ROLLBACK when it is closed without having committed:
//
//	scope, err := txscope.Open(ctx, conn, txscope.Immediate)
//	if err != nil {
//	    return err
//	}
//	defer scope.Close()
//
//	if err := doWork(ctx); err != nil {
//	    return err // Close rolls back
//	}
//	return scope.Commit(ctx)
//
// Close never returns or raises an error. A ROLLBACK that fails while the
// scope is closing is handed to a CleanupHandler, which logs it by default.
//
// Savepoint methods are direct pass-throughs to the connection. Names are
// concatenated into the statement text verbatim and must be safe SQL
// identifiers; NewSavepointName generates one.
//
// A Scope borrows its connection and must not outlive it. Neither a Scope
// nor the connection under it may be used from more than one goroutine at a
// time.
package txscope

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-txscope/pkg/logging"
	"github.com/dd0wney/cluso-txscope/pkg/metrics"
)

// Executor is the one capability a Scope needs from its connection: run a
// statement and report whether it succeeded.
type Executor interface {
	Exec(ctx context.Context, sql string) error
}

// ExecutorFunc adapts an ordinary function to the Executor interface.
type ExecutorFunc func(ctx context.Context, sql string) error

// Exec calls f(ctx, sql).
func (f ExecutorFunc) Exec(ctx context.Context, sql string) error {
	return f(ctx, sql)
}

// State is the position of a Scope in its lifecycle.
type State int

const (
	// Active is the state after a successful Open.
	Active State = iota
	// Committed is entered once, by a successful Commit.
	Committed
	// RolledBack is entered once, by Close on an Active scope.
	RolledBack
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Scope controls one transaction on a borrowed connection.
type Scope struct {
	conn    Executor
	mode    Mode
	dialect Dialect
	state   State
	id      string
	opened  time.Time

	// baseCtx is the context given to Open. Close derives its context from
	// it without the cancellation so the rollback is still attempted after
	// the caller's deadline has passed.
	baseCtx context.Context

	logger    logging.Logger
	metrics   *metrics.Registry
	onCleanup CleanupHandler
}

// Open begins a transaction on conn in the given mode. On any error no
// Scope is returned and nothing needs to be closed.
func Open(ctx context.Context, conn Executor, mode Mode, opts ...Option) (*Scope, error) {
	if conn == nil {
		return nil, ErrNilExecutor
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	begin, err := o.dialect.BeginStatement(mode)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	s := &Scope{
		conn:    conn,
		mode:    mode,
		dialect: o.dialect,
		state:   Active,
		id:      id,
		baseCtx: ctx,
		logger: o.logger.With(
			logging.Component("txscope"),
			logging.ScopeID(id),
			logging.Mode(mode.String()),
		),
		metrics:   o.metrics,
		onCleanup: o.onCleanup,
	}
	if s.onCleanup == nil {
		s.onCleanup = LogCleanupFailure(s.logger)
	}

	if err := s.exec(ctx, OpBegin, begin); err != nil {
		return nil, err
	}
	s.opened = time.Now()

	if s.metrics != nil {
		s.metrics.RecordBegin(mode.String())
	}
	return s, nil
}

// Commit issues COMMIT. If the connection rejects it the scope stays Active:
// the caller may retry, or Close will roll back. A second Commit after a
// successful one returns ErrAlreadyCommitted without contacting the
// connection.
func (s *Scope) Commit(ctx context.Context) error {
	switch s.state {
	case Committed:
		s.logger.Warn("commit called on a committed transaction")
		return ErrAlreadyCommitted
	case RolledBack:
		return ErrScopeClosed
	}

	op := logging.StartTimer(s.logger, "transaction commit")
	if err := s.exec(ctx, OpCommit, stmtCommit); err != nil {
		op.EndError(err)
		return err
	}
	s.state = Committed
	op.End()

	if s.metrics != nil {
		s.metrics.RecordCommit(s.mode.String(), time.Since(s.opened))
	}
	return nil
}

// Close ends the scope. An Active scope is rolled back; a Committed or
// already closed scope is left alone. Close is safe to call on a nil Scope
// and safe to call more than once.
//
// Close does not report failure. If the ROLLBACK fails, or the connection
// panics while running it, the failure goes to the scope's CleanupHandler.
func (s *Scope) Close() {
	if s == nil || s.state != Active {
		return
	}
	s.state = RolledBack

	failure := s.rollback()

	if s.metrics != nil {
		s.metrics.RecordRollback(s.mode.String(), time.Since(s.opened))
		if failure != nil {
			s.metrics.RecordCleanupFailure(s.mode.String(), failure.Kind())
		}
	}
	if failure != nil {
		s.onCleanup(failure)
	}
}

func (s *Scope) rollback() (failure *CleanupFailure) {
	defer func() {
		if r := recover(); r != nil {
			failure = &CleanupFailure{
				ScopeID:   s.id,
				Mode:      s.mode,
				Statement: stmtRollback,
				Panic:     r,
			}
		}
	}()

	s.logger.Debug("executing control statement",
		logging.Operation(OpRollback), logging.Statement(stmtRollback))

	if err := s.conn.Exec(context.WithoutCancel(s.baseCtx), stmtRollback); err != nil {
		return &CleanupFailure{
			ScopeID:   s.id,
			Mode:      s.mode,
			Statement: stmtRollback,
			Err:       err,
		}
	}
	return nil
}

func (s *Scope) exec(ctx context.Context, op, stmt string, fields ...logging.Field) error {
	s.logger.Debug("executing control statement",
		append([]logging.Field{logging.Operation(op), logging.Statement(stmt)}, fields...)...)

	if err := s.conn.Exec(ctx, stmt); err != nil {
		if s.metrics != nil {
			s.metrics.RecordStatementError(op)
		}
		return &StatementError{Op: op, Statement: stmt, ScopeID: s.id, Cause: err}
	}
	return nil
}

// Mode returns the mode the transaction was opened with.
func (s *Scope) Mode() Mode { return s.mode }

// Dialect returns the dialect used to build the BEGIN statement.
func (s *Scope) Dialect() Dialect { return s.dialect }

// State returns the current lifecycle state.
func (s *Scope) State() State { return s.state }

// ID returns a unique identifier for this scope, used in logs and errors.
func (s *Scope) ID() string { return s.id }
