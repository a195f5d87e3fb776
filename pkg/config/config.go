// Package config loads the YAML file that drives txrun.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-txscope/pkg/logging"
	"github.com/dd0wney/cluso-txscope/pkg/txscope"
)

// Cleanup policies
const (
	CleanupLog   = "log"
	CleanupPanic = "panic"
)

// Defaults applied by ApplyDefaults
const (
	DefaultDriver           = "sqlite"
	DefaultMode             = "deferred"
	DefaultLogLevel         = "info"
	DefaultCleanupPolicy    = CleanupLog
	DefaultStatementTimeout = 30 * time.Second
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report fields by their YAML key rather than the Go field name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Config is the txrun configuration file
type Config struct {
	Driver                string        `yaml:"driver" validate:"required,oneof=sqlite postgres"`
	DSN                   string        `yaml:"dsn" validate:"required"`
	Mode                  string        `yaml:"mode" validate:"required,oneof=deferred immediate exclusive"`
	LogLevel              string        `yaml:"log_level" validate:"required,oneof=debug info warn error"`
	CleanupPolicy         string        `yaml:"cleanup_policy" validate:"required,oneof=log panic"`
	StatementTimeout      time.Duration `yaml:"statement_timeout" validate:"min=0"`
	SavepointPerStatement bool          `yaml:"savepoint_per_statement"`
	ContinueOnError       bool          `yaml:"continue_on_error"`
}

// Load reads, defaults and validates the file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied and no DSN
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero-valued fields
func (c *Config) ApplyDefaults() {
	c.Driver = DefaultOr(c.Driver, DefaultDriver)
	c.Mode = DefaultOr(c.Mode, DefaultMode)
	c.LogLevel = DefaultOr(c.LogLevel, DefaultLogLevel)
	c.CleanupPolicy = DefaultOr(c.CleanupPolicy, DefaultCleanupPolicy)
	c.StatementTimeout = DefaultOr(c.StatementTimeout, DefaultStatementTimeout)
}

// Validate checks the struct tags and reports the first problem
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.ContinueOnError && !c.SavepointPerStatement {
		return errors.New("config.continue_on_error: requires savepoint_per_statement")
	}
	return nil
}

// TxMode converts Mode to a txscope.Mode
func (c *Config) TxMode() (txscope.Mode, error) {
	return txscope.ParseMode(c.Mode)
}

// Dialect returns the SQL dialect for Driver
func (c *Config) Dialect() (txscope.Dialect, error) {
	return txscope.ParseDialect(c.Driver)
}

// Level converts LogLevel to a logging.Level
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// CleanupHandler returns the handler matching CleanupPolicy. Under the log
// policy it returns nil so each scope logs through its own logger.
func (c *Config) CleanupHandler() txscope.CleanupHandler {
	if c.CleanupPolicy == CleanupPanic {
		return txscope.PanicOnCleanupFailure
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("config.%s: field is required", field)
		case "oneof":
			return fmt.Errorf("config.%s: value %q must be one of [%s]", field, e.Value(), e.Param())
		case "min":
			return fmt.Errorf("config.%s: must be at least %s", field, e.Param())
		default:
			return fmt.Errorf("config.%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}

// DefaultOr returns the value if it's non-zero, otherwise returns the default.
func DefaultOr[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
