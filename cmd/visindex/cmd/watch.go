package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/visindex/internal/config"
	"github.com/Aman-CERP/visindex/internal/output"
	"github.com/Aman-CERP/visindex/internal/store"
	"github.com/Aman-CERP/visindex/internal/watcher"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var forcePolling bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the database in sync with the config file",
		Long: `Watch the project config file and sync its scope values into the
catalog database whenever it changes. Observers are notified of changed
paths, so editing the visibility allow-list queues entity discovery.

Only one watcher may run per database. Removing the config file keeps the
values already stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, root, forcePolling)
		},
	}

	cmd.Flags().BoolVar(&forcePolling, "poll", false, "Poll the file instead of using filesystem notifications")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, root *rootOptions, forcePolling bool) error {
	lock := watcher.NewInstanceLock(root.cfg.Database.Path)
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	a, err := root.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	fw, err := watcher.NewFileWatcher(root.configPath, watcher.Options{
		DebounceWindow: root.cfg.DebounceDuration(),
		ForcePolling:   forcePolling,
	}, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = fw.Stop() }()

	configPath := root.configPath
	reloader := watcher.NewReloader(func() ([]store.ConfigValue, error) {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		return cfg.ScopeValues(), nil
	}, a.db.Config(), a.provider, a.dispatcher, a.logger)

	output.New(cmd.OutOrStdout()).Status("", "watching "+fw.Path()+" ("+fw.WatcherType()+")")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Stop closes the channels the other goroutines range over.
		defer func() { _ = fw.Stop() }()
		return fw.Start(gctx)
	})
	g.Go(func() error { return reloader.Run(gctx, fw.Events()) })
	g.Go(func() error {
		for err := range fw.Errors() {
			a.logger.Warn("config_watch_error", slog.String("error", err.Error()))
		}
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
