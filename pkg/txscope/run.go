package txscope

import (
	"context"
)

type scopeKey struct{}

// WithScope returns a copy of ctx carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the Scope carried by ctx, or nil.
func FromContext(ctx context.Context) *Scope {
	if s, ok := ctx.Value(scopeKey{}).(*Scope); ok {
		return s
	}
	return nil
}

// Func is the body of a transaction run by Run. The context it receives
// carries the scope (see FromContext).
type Func func(ctx context.Context, s *Scope) error

// Run opens a scope, calls fn and commits if fn returns nil. If fn returns
// an error or panics the scope is closed, which rolls the transaction back.
func Run(ctx context.Context, conn Executor, mode Mode, fn Func, opts ...Option) error {
	s, err := Open(ctx, conn, mode, opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(WithScope(ctx, s), s); err != nil {
		return err
	}
	return s.Commit(ctx)
}
