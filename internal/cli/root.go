package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"taxisync/internal/config"
	"taxisync/internal/secret"
	"taxisync/internal/service"
	"taxisync/internal/storage"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	batchSize  int64
	debug      bool
	logFormat  string
	lookupEnv  func(string) (string, bool)
}

// NewRootCmd creates the root command for the taxisync CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithEnv(ver, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit env lookup for testability.
func NewRootCmdWithEnv(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	opts := &rootOptions{lookupEnv: lookupEnv}

	cmd := &cobra.Command{
		Use:   "taxisync",
		Short: "Copy taxi trips from ClickHouse into a relational database",
		Long: `taxisync copies the trips table from the analytical store into the
relational store in fixed-size batches. Each batch is committed on its own,
and a rerun resumes from the destination's current row count.`,
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Copy everything not yet in the destination
  taxisync sync --config taxisync.yaml

  # Show how far the destination has come
  taxisync status

  # Verify both stores and the column mapping before a long run
  taxisync check`,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	cmd.PersistentFlags().Int64Var(&opts.batchSize, "batch-size", 0, "records per batch (overrides config and env)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: auto, console, json")

	cmd.AddCommand(
		newSyncCmd(opts),
		newStatusCmd(opts),
		newCheckCmd(opts),
		newHistoryCmd(opts),
	)
	return cmd
}

// load reads the config file, then applies environment and flag overrides,
// and builds the logger.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configPath, o.lookupEnv)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	// CLI flags override environment variables and config file
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = o.batchSize
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if o.debug {
		cfg.Logging.Level = "debug"
	}

	log := config.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	log.Debug().Str("command", cmd.Name()).Str("config", o.configPath).Msg("command started")
	return cfg, log, nil
}

// newService builds a SyncService. emitterFor may be nil; it receives the
// loaded config. The returned cleanup closes the run ledger when one is
// configured.
func (o *rootOptions) newService(
	cmd *cobra.Command,
	emitterFor func(*config.Config) service.EventEmitter,
) (*service.SyncService, *config.Config, func(), error) {
	cfg, log, err := o.load(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	var emitter service.EventEmitter
	if emitterFor != nil {
		emitter = emitterFor(cfg)
	}

	var runs *storage.RunStore
	cleanup := func() {}
	if cfg.History.Path != "" {
		db, err := storage.New(cfg.History.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open run history: %w", err)
		}
		runs = storage.NewRunStore(db)
		cleanup = func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("close run history")
			}
		}
	}

	resolver := secret.NewResolver()
	if o.lookupEnv != nil {
		resolver.LookupEnv = o.lookupEnv
	}
	return service.NewSyncService(cfg, resolver, runs, emitter, log), cfg, cleanup, nil
}
