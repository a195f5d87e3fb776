// Package sqlconn adapts database connections to txscope.Executor.
package sqlconn

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dd0wney/cluso-txscope/pkg/txscope"
)

// SQLExecer is satisfied by *sql.Conn, *sql.DB and *sql.Tx.
//
// A *sql.DB is a pool and may run BEGIN and COMMIT on different physical
// connections; pin one with (*sql.DB).Conn before handing it to a scope.
type SQLExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// FromSQL adapts a database/sql connection.
func FromSQL(c SQLExecer) txscope.Executor {
	return txscope.ExecutorFunc(func(ctx context.Context, stmt string) error {
		_, err := c.ExecContext(ctx, stmt)
		return err
	})
}

// PgxExecer is satisfied by *pgx.Conn, *pgxpool.Conn and pgx.Tx.
type PgxExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// FromPgx adapts a pgx connection.
func FromPgx(c PgxExecer) txscope.Executor {
	return txscope.ExecutorFunc(func(ctx context.Context, stmt string) error {
		_, err := c.Exec(ctx, stmt)
		return err
	})
}

// WithTimeout bounds every statement sent through exec by d. A zero or
// negative d returns exec unchanged.
func WithTimeout(exec txscope.Executor, d time.Duration) txscope.Executor {
	if d <= 0 {
		return exec
	}
	return txscope.ExecutorFunc(func(ctx context.Context, stmt string) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return exec.Exec(ctx, stmt)
	})
}
