package watcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/visindex/internal/observer"
	"github.com/Aman-CERP/visindex/internal/store"
)

// LoadFunc reads the scope values currently in the config file.
type LoadFunc func() ([]store.ConfigValue, error)

// ConfigSyncer writes scope values and reports the paths that changed.
type ConfigSyncer interface {
	Sync(ctx context.Context, values []store.ConfigValue) ([]string, error)
}

// Invalidator drops cached configuration.
type Invalidator interface {
	Invalidate()
}

// Dispatcher delivers configuration-change events.
type Dispatcher interface {
	Dispatch(ctx context.Context, event observer.ConfigChanged) error
}

// Reloader applies config file changes to the database.
type Reloader struct {
	load       LoadFunc
	syncer     ConfigSyncer
	cache      Invalidator
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewReloader creates a reloader. cache may be nil.
func NewReloader(load LoadFunc, syncer ConfigSyncer, cache Invalidator, dispatcher Dispatcher, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		load:       load,
		syncer:     syncer,
		cache:      cache,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Reload syncs the file's values and, when any stored value changed,
// invalidates the cache and dispatches one ConfigChanged event.
func (r *Reloader) Reload(ctx context.Context) ([]string, error) {
	values, err := r.load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	changed, err := r.syncer.Sync(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("sync config: %w", err)
	}
	if len(changed) == 0 {
		r.logger.DebugContext(ctx, "config_reload_unchanged", slog.Int("values", len(values)))
		return nil, nil
	}

	if r.cache != nil {
		r.cache.Invalidate()
	}
	r.logger.InfoContext(ctx, "config_reloaded",
		slog.Int("values", len(values)),
		slog.Any("changed_paths", changed))

	event := observer.ConfigChanged{
		Section:      observer.SectionKlevuIntegration,
		ChangedPaths: changed,
	}
	if err := r.dispatcher.Dispatch(ctx, event); err != nil {
		return changed, fmt.Errorf("dispatch config change: %w", err)
	}
	return changed, nil
}

// Run reloads for every batch that still leaves the file in place. Reload
// failures are logged and do not stop the loop. Run returns when batches
// is closed or ctx is done.
func (r *Reloader) Run(ctx context.Context, batches <-chan []FileEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			if !fileStillPresent(batch) {
				r.logger.WarnContext(ctx, "config_file_removed_keeping_values")
				continue
			}
			if _, err := r.Reload(ctx); err != nil {
				r.logger.ErrorContext(ctx, "config_reload_failed",
					slog.String("error", err.Error()))
			}
		}
	}
}

func fileStillPresent(batch []FileEvent) bool {
	for _, e := range batch {
		if e.Operation == OpDelete || e.Operation == OpRename {
			return false
		}
	}
	return len(batch) > 0
}
