// Package cmd provides the CLI commands for visindex.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/visindex/internal/config"
	"github.com/Aman-CERP/visindex/internal/determiner"
	"github.com/Aman-CERP/visindex/internal/logging"
	"github.com/Aman-CERP/visindex/internal/observer"
	"github.com/Aman-CERP/visindex/internal/scopeconfig"
	"github.com/Aman-CERP/visindex/internal/store"
	"github.com/Aman-CERP/visindex/internal/visibility"
	"github.com/Aman-CERP/visindex/pkg/version"
)

// rootOptions holds state shared by all subcommands of one root command.
type rootOptions struct {
	configPath string
	debug      bool

	cfg            *config.Config
	logger         *slog.Logger
	loggingCleanup func()
}

// NewRootCmd creates the root command for the visindex CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "visindex",
		Short: "Decide which catalog products are indexable by visibility",
		Long: `visindex decides whether catalog products belong in the search index
for a store, based on the visibility allow-list configured at
klevu/indexing_products_exclude_by_visibility/sync_visibilities.

Configured values live in visindex.yaml and are synced into the catalog
database on every run. 'visindex watch' keeps them in sync continuously.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.setup,
		PersistentPostRun: func(*cobra.Command, []string) { opts.teardown() },
	}

	cmd.SetVersionTemplate("visindex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Project config file (default ./"+config.ProjectConfigName+")")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false,
		"Enable debug logging to ~/.visindex/logs/")

	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newProductCmd(opts))
	cmd.AddCommand(newStoreCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setup loads configuration and installs the logger.
func (o *rootOptions) setup(_ *cobra.Command, _ []string) error {
	if o.configPath == "" {
		o.configPath = config.ProjectConfigPath(".")
	}
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	logCfg := logging.DefaultConfig()
	if o.debug {
		logCfg = logging.DebugConfig()
	} else {
		logCfg.Level = cfg.Logging.Level
	}
	if cfg.Logging.File != "" {
		logCfg.FilePath = cfg.Logging.File
	}
	if cfg.Logging.MaxSizeMB > 0 {
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxFiles > 0 {
		logCfg.MaxFiles = cfg.Logging.MaxFiles
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.logger = logger
	o.loggingCleanup = cleanup
	slog.SetDefault(logger)

	if o.debug {
		logger.Debug("debug_logging_enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("config", o.configPath),
			slog.String("version", version.Short()))
	}
	return nil
}

func (o *rootOptions) teardown() {
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
}

// app is the wired object graph behind the commands that touch the database.
type app struct {
	cfg        *config.Config
	db         *store.DB
	provider   *scopeconfig.Provider
	determiner *determiner.Determiner
	dispatcher *observer.Dispatcher
	cron       *store.CronScheduleStore
	logger     *slog.Logger
}

// openApp opens the database, wires the collaborators and syncs the
// configured scope values, dispatching any change.
func (o *rootOptions) openApp(ctx context.Context) (*app, error) {
	db, err := store.Open(o.cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	provider := scopeconfig.New(db.Config(), db, o.cfg.CacheSize, o.logger)
	cron := db.CronSchedules(o.cfg.Cron.JobCode)
	a := &app{
		cfg:        o.cfg,
		db:         db,
		provider:   provider,
		determiner: determiner.New(visibility.NewPolicy(provider), db.Products(), o.logger),
		dispatcher: observer.NewDispatcher(observer.NewSyncSettingsObserver(cron, o.logger)),
		cron:       cron,
		logger:     o.logger,
	}

	if _, err := a.applyConfig(ctx, o.cfg.ScopeValues()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

// applyConfig syncs values and notifies observers of the paths that changed.
func (a *app) applyConfig(ctx context.Context, values []store.ConfigValue) ([]string, error) {
	changed, err := a.db.Config().Sync(ctx, values)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return nil, nil
	}
	a.provider.Invalidate()
	err = a.dispatcher.Dispatch(ctx, observer.ConfigChanged{
		Section:      observer.SectionKlevuIntegration,
		ChangedPaths: changed,
	})
	return changed, err
}

func (a *app) Close() error {
	return a.db.Close()
}
