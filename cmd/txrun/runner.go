package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-txscope/pkg/logging"
	"github.com/dd0wney/cluso-txscope/pkg/txscope"
)

// runner sends script statements through one transaction scope
type runner struct {
	exec            txscope.Executor
	mode            txscope.Mode
	savepoints      bool
	continueOnError bool
	logger          logging.Logger
	opts            []txscope.Option
}

// report summarizes a run
type report struct {
	Executed  int
	Undone    int
	Committed bool
}

func (r *runner) run(ctx context.Context, stmts []string) (report, error) {
	var rep report

	err := txscope.Run(ctx, r.exec, r.mode, func(ctx context.Context, s *txscope.Scope) error {
		for i, stmt := range stmts {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := r.runStatement(ctx, s, i, stmt)
			if err == nil {
				rep.Executed++
				continue
			}
			if r.savepoints && r.continueOnError && !savepointFailed(err) {
				rep.Undone++
				r.logger.Warn("statement undone",
					logging.Int("index", i+1), logging.Statement(stmt), logging.Error(err))
				continue
			}
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
		return nil
	}, r.opts...)

	rep.Committed = err == nil
	return rep, err
}

func (r *runner) runStatement(ctx context.Context, s *txscope.Scope, i int, stmt string) error {
	if !r.savepoints {
		return r.exec.Exec(ctx, stmt)
	}
	name := fmt.Sprintf("txrun_stmt_%d", i+1)
	return txscope.WithSavepoint(ctx, s, name, func(ctx context.Context) error {
		return r.exec.Exec(ctx, stmt)
	})
}

// savepointFailed reports whether err came from the savepoint statements
// wrapped around a script statement. When the undo itself failed the
// statement's effects may still be in the transaction, so the run must
// not continue to COMMIT.
func savepointFailed(err error) bool {
	var se *txscope.StatementError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Op {
	case txscope.OpSetSavepoint, txscope.OpRollbackSavepoint, txscope.OpReleaseSavepoint:
		return true
	}
	return false
}
