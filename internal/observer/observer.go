// Package observer reacts to configuration changes by scheduling entity
// discovery when the indexable-visibility allow-list changes.
package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Aman-CERP/visindex/internal/visibility"
)

// SectionKlevuIntegration is the configuration section holding the
// visibility allow-list.
const SectionKlevuIntegration = "klevu_integration"

// ConfigChanged is raised after configuration values were saved.
type ConfigChanged struct {
	Section      string
	ChangedPaths []string
}

// Scheduler queues a discovery run.
type Scheduler interface {
	Schedule(ctx context.Context) error
}

// Observer handles configuration-change events.
type Observer interface {
	Handle(ctx context.Context, event ConfigChanged) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event ConfigChanged) error

// Handle calls f.
func (f ObserverFunc) Handle(ctx context.Context, event ConfigChanged) error {
	return f(ctx, event)
}

// SyncSettingsObserver schedules discovery when the visibility allow-list
// is among the changed paths.
type SyncSettingsObserver struct {
	scheduler Scheduler
	logger    *slog.Logger
}

// NewSyncSettingsObserver creates the observer. A nil logger uses slog.Default().
func NewSyncSettingsObserver(scheduler Scheduler, logger *slog.Logger) *SyncSettingsObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncSettingsObserver{scheduler: scheduler, logger: logger}
}

// Handle schedules at most one discovery run per event.
func (o *SyncSettingsObserver) Handle(ctx context.Context, event ConfigChanged) error {
	if !slices.Contains(event.ChangedPaths, visibility.ConfigPathSyncVisibilities) {
		return nil
	}

	if err := o.scheduler.Schedule(ctx); err != nil {
		o.logger.ErrorContext(ctx, "discovery_schedule_failed",
			slog.String("section", event.Section),
			slog.String("error", err.Error()))
		return fmt.Errorf("schedule discovery: %w", err)
	}

	o.logger.InfoContext(ctx, "discovery_scheduled",
		slog.String("section", event.Section),
		slog.String("path", visibility.ConfigPathSyncVisibilities))
	return nil
}

// Dispatcher fans events out to registered observers in order.
type Dispatcher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewDispatcher creates a dispatcher with the given observers.
func NewDispatcher(observers ...Observer) *Dispatcher {
	return &Dispatcher{observers: observers}
}

// Register adds an observer.
func (d *Dispatcher) Register(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// Dispatch delivers event to every observer. One failing observer does not
// stop the rest; all errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, event ConfigChanged) error {
	d.mu.RLock()
	observers := slices.Clone(d.observers)
	d.mu.RUnlock()

	var errs []error
	for _, o := range observers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := o.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
