// Package txtest provides an in-memory connection that records the
// statements sent to it, for testing code built on txscope.
package txtest

import (
	"context"
	"sync"
)

// Recorder records every statement passed to Exec. Statements can be
// configured to fail or panic. The zero value is ready to use.
type Recorder struct {
	mu         sync.Mutex
	statements []string
	failOn     map[string]error
	panicOn    map[string]any

	// HonorContext makes Exec return ctx.Err() for a cancelled context,
	// the way a real driver does.
	HonorContext bool
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Exec records sql and then returns the configured failure for it, if any.
func (r *Recorder) Exec(ctx context.Context, sql string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.statements = append(r.statements, sql)

	if v, ok := r.panicOn[sql]; ok {
		panic(v)
	}
	if r.HonorContext {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if err, ok := r.failOn[sql]; ok {
		return err
	}
	return nil
}

// FailOn makes every Exec of sql return err. A nil err clears the failure.
func (r *Recorder) FailOn(sql string, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		delete(r.failOn, sql)
		return r
	}
	if r.failOn == nil {
		r.failOn = make(map[string]error)
	}
	r.failOn[sql] = err
	return r
}

// PanicOn makes every Exec of sql panic with v.
func (r *Recorder) PanicOn(sql string, v any) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.panicOn == nil {
		r.panicOn = make(map[string]any)
	}
	r.panicOn[sql] = v
	return r
}

// Statements returns a copy of the statements recorded so far, in order.
func (r *Recorder) Statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.statements))
	copy(out, r.statements)
	return out
}

// Count returns how many times sql was executed.
func (r *Recorder) Count(sql string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.statements {
		if s == sql {
			n++
		}
	}
	return n
}

// Reset forgets recorded statements. Configured failures are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = nil
}
