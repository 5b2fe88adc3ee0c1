// Package cmd implements the fluentdb command line tool: run statements,
// render builder chains without running them, and run table maintenance.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coregx/fluentdb"
	"github.com/coregx/fluentdb/internal/config"
	"github.com/coregx/fluentdb/internal/metrics"
)

// session is the state shared by every subcommand of one invocation.
type session struct {
	cfg        *config.Config
	configPath string
	asJSON     bool
	verbose    bool
	showStats  bool

	stdout io.Writer
	stderr io.Writer

	collector *metrics.Collector
	registry  *prometheus.Registry
}

// NewRootCommand builds the fluentdb command tree writing to stdout and
// stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	s := &session{
		cfg:       config.Default(),
		stdout:    stdout,
		stderr:    stderr,
		collector: metrics.NewCollector(),
		registry:  prometheus.NewRegistry(),
	}

	rc := &cobra.Command{
		Use:   "fluentdb",
		Short: "Build and run SQL statements against MySQL, PostgreSQL or SQLite.",
		Long: `fluentdb runs raw statements and prepared templates, renders builder
chains without running them, and runs table maintenance.

Every connection setting can be given as a flag, as an environment variable
(FLUENTDB_ plus the flag name upper-cased, dashes and dots replaced by
underscores) or in a TOML file passed with --config. Flags win over the
environment, which wins over the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Bind(viper.New(), cmd.Flags(), s.configPath); err != nil {
				return err
			}
			if err := s.cfg.Normalize(); err != nil {
				return err
			}
			return s.collector.Register(s.registry)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !s.showStats {
				return nil
			}
			return s.writeMetrics()
		},
	}

	flags := rc.PersistentFlags()
	flags.StringVarP(&s.configPath, "config", "c", "", "Configuration file to read from.")
	flags.BoolVar(&s.asJSON, "json", false, "Write results as JSON instead of a table.")
	flags.BoolVarP(&s.verbose, "verbose", "v", false, "Log every statement to stderr.")
	flags.BoolVar(&s.showStats, "metrics", false, "Write statement counters to stderr when done.")
	s.cfg.RegisterFlags(flags)

	rc.AddCommand(newQueryCommand(s))
	rc.AddCommand(newExecCommand(s))
	rc.AddCommand(newBuildCommand(s))
	rc.AddCommand(newMaintainCommand(s))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// options are the handle options every connecting subcommand shares.
func (s *session) options() []fluentdb.Option {
	opts := []fluentdb.Option{fluentdb.WithMetrics(s.collector)}
	if s.cfg.Debug {
		opts = append(opts, fluentdb.WithErrorSink(fluentdb.DebugSink{Out: s.stderr}))
	}
	if s.verbose {
		opts = append(opts, fluentdb.WithLogger(slog.New(slog.NewTextHandler(s.stderr, nil))))
	}
	return opts
}

// connect opens and pings a handle.
func (s *session) connect(ctx context.Context) (*fluentdb.DB, error) {
	return fluentdb.Connect(ctx, s.cfg, s.options()...)
}

// open builds a handle without connecting, for rendering statements.
func (s *session) open() (*fluentdb.DB, error) {
	dsn, err := s.cfg.DSN()
	if err != nil {
		return nil, err
	}
	opts := append(s.options(), fluentdb.WithPrefix(s.cfg.Prefix))
	db, err := fluentdb.Open(s.cfg.DriverName(), dsn, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.cfg.DriverName(), err)
	}
	return db, nil
}
