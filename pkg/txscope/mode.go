package txscope

import (
	"fmt"
	"strings"
)

// Mode is the locking strategy requested when a transaction begins.
type Mode int

const (
	// Deferred acquires no locks until the first read or write.
	Deferred Mode = iota
	// Immediate takes the write lock at BEGIN.
	Immediate
	// Exclusive takes an exclusive lock at BEGIN.
	Exclusive
)

var modeNames = [...]string{
	Deferred:  "deferred",
	Immediate: "immediate",
	Exclusive: "exclusive",
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	return m >= Deferred && m <= Exclusive
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode converts "deferred", "immediate" or "exclusive" (any case) to a Mode.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Dialect selects the BEGIN statement text sent for each Mode. The COMMIT,
// ROLLBACK and savepoint statements are the same in every dialect.
type Dialect int

const (
	// SQLite sends BEGIN DEFERRED|IMMEDIATE|EXCLUSIVE TRANSACTION.
	SQLite Dialect = iota
	// Postgres has no locking modes on BEGIN, so each Mode maps to an
	// isolation level of matching strictness.
	Postgres
)

var dialectNames = [...]string{
	SQLite:   "sqlite",
	Postgres: "postgres",
}

func (d Dialect) String() string {
	if d < SQLite || d > Postgres {
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
	return dialectNames[d]
}

// ParseDialect converts "sqlite" or "postgres" (any case) to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d, n := range dialectNames {
		if n == name {
			return Dialect(d), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDialect, s)
}

var beginStatements = map[Dialect][3]string{
	SQLite: {
		Deferred:  "BEGIN DEFERRED TRANSACTION",
		Immediate: "BEGIN IMMEDIATE TRANSACTION",
		Exclusive: "BEGIN EXCLUSIVE TRANSACTION",
	},
	Postgres: {
		Deferred:  "BEGIN TRANSACTION ISOLATION LEVEL READ COMMITTED",
		Immediate: "BEGIN TRANSACTION ISOLATION LEVEL REPEATABLE READ",
		Exclusive: "BEGIN TRANSACTION ISOLATION LEVEL SERIALIZABLE",
	},
}

// BeginStatement returns the statement that opens a transaction in mode m.
func (d Dialect) BeginStatement(m Mode) (string, error) {
	if !m.Valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidMode, m)
	}
	stmts, ok := beginStatements[d]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDialect, d)
	}
	return stmts[m], nil
}

const (
	stmtCommit   = "COMMIT"
	stmtRollback = "ROLLBACK"

	prefixSavepoint         = "SAVEPOINT "
	prefixReleaseSavepoint  = "RELEASE SAVEPOINT "
	prefixRollbackSavepoint = "ROLLBACK TO SAVEPOINT "
)

// Operation names used in errors, logs and metric labels.
const (
	OpBegin             = "begin"
	OpCommit            = "commit"
	OpRollback          = "rollback"
	OpSetSavepoint      = "savepoint"
	OpReleaseSavepoint  = "release"
	OpRollbackSavepoint = "rollback_to"
)
