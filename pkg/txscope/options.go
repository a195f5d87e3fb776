package txscope

import (
	"github.com/dd0wney/cluso-txscope/pkg/logging"
	"github.com/dd0wney/cluso-txscope/pkg/metrics"
)

// Option configures a Scope at Open.
type Option func(*options)

type options struct {
	logger    logging.Logger
	metrics   *metrics.Registry
	dialect   Dialect
	onCleanup CleanupHandler
}

func defaultOptions() options {
	return options{
		logger:  logging.DefaultLogger(),
		dialect: SQLite,
	}
}

// WithLogger sets the logger used for statement traces and cleanup failures.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records scope activity in r. A nil registry disables metrics.
func WithMetrics(r *metrics.Registry) Option {
	return func(o *options) {
		o.metrics = r
	}
}

// WithDialect selects the BEGIN statement text. The default is SQLite.
func WithDialect(d Dialect) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// WithCleanupHandler replaces the default LogCleanupFailure handler.
func WithCleanupHandler(h CleanupHandler) Option {
	return func(o *options) {
		o.onCleanup = h
	}
}
