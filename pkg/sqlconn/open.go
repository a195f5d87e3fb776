package sqlconn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	_ "modernc.org/sqlite"

	"github.com/dd0wney/cluso-txscope/pkg/txscope"
)

// Driver names accepted by Open
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned by Open for a driver name it does not support
var ErrUnknownDriver = errors.New("unknown driver")

// Conn is a single open database connection ready for txscope.
type Conn struct {
	Executor txscope.Executor
	Dialect  txscope.Dialect

	// Query runs a statement that returns rows. Control statements go
	// through Executor; this is for callers that need to read data back.
	Query func(ctx context.Context, sql string) ([][]any, error)

	close func(ctx context.Context) error
}

// Close releases the connection.
func (c *Conn) Close(ctx context.Context) error {
	if c.close == nil {
		return nil
	}
	return c.close(ctx)
}

// Open connects with the named driver. SQLite uses modernc.org/sqlite and
// pins one connection out of the database/sql pool; Postgres uses a single
// pgx connection.
func Open(ctx context.Context, driver, dsn string) (*Conn, error) {
	switch driver {
	case DriverSQLite:
		return openSQLite(ctx, dsn)
	case DriverPostgres:
		return openPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func openSQLite(ctx context.Context, dsn string) (*Conn, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to acquire sqlite connection: %w", err)
	}

	return &Conn{
		Executor: FromSQL(conn),
		Dialect:  txscope.SQLite,
		Query: func(ctx context.Context, stmt string) ([][]any, error) {
			rows, err := conn.QueryContext(ctx, stmt)
			if err != nil {
				return nil, err
			}
			return scanSQLRows(rows)
		},
		close: func(context.Context) error {
			return errors.Join(conn.Close(), db.Close())
		},
	}, nil
}

func openPostgres(ctx context.Context, dsn string) (*Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Conn{
		Executor: FromPgx(conn),
		Dialect:  txscope.Postgres,
		Query: func(ctx context.Context, stmt string) ([][]any, error) {
			rows, err := conn.Query(ctx, stmt)
			if err != nil {
				return nil, err
			}
			defer rows.Close()

			var out [][]any
			for rows.Next() {
				values, err := rows.Values()
				if err != nil {
					return nil, err
				}
				out = append(out, values)
			}
			return out, rows.Err()
		},
		close: conn.Close,
	}, nil
}

func scanSQLRows(rows *sql.Rows) ([][]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}
