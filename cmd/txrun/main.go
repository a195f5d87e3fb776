// Command txrun executes a SQL script inside a single transaction scope.
//
// Usage:
//
//	txrun [-config txrun.yaml] [-driver sqlite] [-dsn file:app.db] [-mode immediate]
//	      [-savepoints] [-continue-on-error] [-dry-run] [-metrics] script.sql
//
// The script is committed if every statement succeeds. Otherwise the scope
// is closed without committing and the database rolls the work back.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/dd0wney/cluso-txscope/pkg/config"
	"github.com/dd0wney/cluso-txscope/pkg/logging"
	"github.com/dd0wney/cluso-txscope/pkg/metrics"
	"github.com/dd0wney/cluso-txscope/pkg/sqlconn"
	"github.com/dd0wney/cluso-txscope/pkg/txscope"
	"github.com/dd0wney/cluso-txscope/pkg/txscope/txtest"
)

func main() {
	var (
		configFile      = flag.String("config", "", "YAML configuration file")
		driver          = flag.String("driver", "", "Database driver: sqlite or postgres")
		dsn             = flag.String("dsn", "", "Data source name")
		mode            = flag.String("mode", "", "Transaction mode: deferred, immediate or exclusive")
		savepoints      = flag.Bool("savepoints", false, "Run each statement inside its own savepoint")
		continueOnError = flag.Bool("continue-on-error", false, "Undo a failing statement and keep going (needs -savepoints)")
		dryRun          = flag.Bool("dry-run", false, "Print the statements that would be sent without connecting")
		showMetrics     = flag.Bool("metrics", false, "Print Prometheus metrics on exit")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: txrun [flags] script.sql")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Flags override the file
	cfg.Driver = config.DefaultOr(*driver, cfg.Driver)
	cfg.DSN = config.DefaultOr(*dsn, cfg.DSN)
	cfg.Mode = config.DefaultOr(*mode, cfg.Mode)
	cfg.SavepointPerStatement = cfg.SavepointPerStatement || *savepoints
	cfg.ContinueOnError = cfg.ContinueOnError || *continueOnError
	if *dryRun && cfg.DSN == "" {
		cfg.DSN = "dry-run"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	script, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read script: %v", err)
	}

	logger := logging.NewJSONLogger(os.Stderr, cfg.Level())
	logging.SetDefaultLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg := metrics.NewRegistry()
	code := execute(ctx, cfg, string(script), *dryRun, reg, logger, os.Stdout)

	if *showMetrics {
		if err := reg.WriteText(os.Stdout); err != nil {
			logger.Error("failed to write metrics", logging.Error(err))
		}
	}
	os.Exit(code)
}

// execute connects (or records, in dry-run mode), runs the script and
// returns the process exit code.
func execute(ctx context.Context, cfg *config.Config, script string, dryRun bool,
	reg *metrics.Registry, logger logging.Logger, out io.Writer) int {

	mode, err := cfg.TxMode()
	if err != nil {
		logger.Error("invalid mode", logging.Error(err))
		return 2
	}
	dialect, err := cfg.Dialect()
	if err != nil {
		logger.Error("invalid driver", logging.Error(err))
		return 2
	}

	var (
		exec     txscope.Executor
		recorder *txtest.Recorder
	)
	if dryRun {
		recorder = txtest.NewRecorder()
		exec = recorder
	} else {
		conn, err := sqlconn.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			logger.Error("failed to connect", logging.String("driver", cfg.Driver), logging.Error(err))
			return 1
		}
		defer conn.Close(context.WithoutCancel(ctx))
		exec = sqlconn.WithTimeout(conn.Executor, cfg.StatementTimeout)
		dialect = conn.Dialect
	}

	r := &runner{
		exec:            exec,
		mode:            mode,
		savepoints:      cfg.SavepointPerStatement,
		continueOnError: cfg.ContinueOnError,
		logger:          logger,
		opts: []txscope.Option{
			txscope.WithLogger(logger),
			txscope.WithMetrics(reg),
			txscope.WithDialect(dialect),
			txscope.WithCleanupHandler(cfg.CleanupHandler()),
		},
	}

	rep, err := r.run(ctx, splitStatements(script))

	if recorder != nil {
		for _, stmt := range recorder.Statements() {
			fmt.Fprintf(out, "%s;\n", stmt)
		}
	}
	fmt.Fprintf(out, "-- %d executed, %d undone, committed=%t\n", rep.Executed, rep.Undone, rep.Committed)

	if err != nil {
		logger.Error("script failed", logging.Error(err))
		return 1
	}
	return 0
}
