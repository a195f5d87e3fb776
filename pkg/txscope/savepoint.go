package txscope

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-txscope/pkg/logging"
)

// SetSavepoint issues SAVEPOINT <name>. The scope's state is not consulted
// or changed; nesting and duplicate names are left to the engine.
func (s *Scope) SetSavepoint(ctx context.Context, name string) error {
	return s.savepoint(ctx, OpSetSavepoint, name, prefixSavepoint+name)
}

// ReleaseSavepoint issues RELEASE SAVEPOINT <name>.
func (s *Scope) ReleaseSavepoint(ctx context.Context, name string) error {
	return s.savepoint(ctx, OpReleaseSavepoint, name, prefixReleaseSavepoint+name)
}

// RollbackSavepoint issues ROLLBACK TO SAVEPOINT <name>.
func (s *Scope) RollbackSavepoint(ctx context.Context, name string) error {
	return s.savepoint(ctx, OpRollbackSavepoint, name, prefixRollbackSavepoint+name)
}

func (s *Scope) savepoint(ctx context.Context, op, name, stmt string) error {
	err := s.exec(ctx, op, stmt, logging.Savepoint(name))
	if s.metrics != nil {
		s.metrics.RecordSavepoint(op, err)
	}
	return err
}

// NewSavepointName returns a unique name that is safe to splice into a
// savepoint statement.
func NewSavepointName() string {
	return "sp_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// WithSavepoint runs fn between SAVEPOINT name and RELEASE SAVEPOINT name.
// If fn returns an error or panics, the work since the savepoint is undone
// with ROLLBACK TO SAVEPOINT followed by RELEASE SAVEPOINT, and the enclosing
// transaction stays open. An empty name is replaced by NewSavepointName().
func WithSavepoint(ctx context.Context, s *Scope, name string, fn func(ctx context.Context) error) error {
	if name == "" {
		name = NewSavepointName()
	}
	if err := s.SetSavepoint(ctx, name); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = s.undoSavepoint(ctx, name)
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		if uerr := s.undoSavepoint(ctx, name); uerr != nil {
			return errors.Join(err, uerr)
		}
		return err
	}
	return s.ReleaseSavepoint(ctx, name)
}

// undoSavepoint runs with the caller's cancellation stripped, since fn may
// have failed precisely because ctx expired.
func (s *Scope) undoSavepoint(ctx context.Context, name string) error {
	ctx = context.WithoutCancel(ctx)
	if err := s.RollbackSavepoint(ctx, name); err != nil {
		return err
	}
	return s.ReleaseSavepoint(ctx, name)
}
