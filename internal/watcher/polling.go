package watcher

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// PollingWatcher detects changes to one file by comparing its size and
// modification time on every tick. Used where fsnotify is unavailable.
type PollingWatcher struct {
	path     string
	interval time.Duration
	last     fileSnapshot
	events   chan FileEvent
	stopCh   chan struct{}
	mu       sync.Mutex
	stopped  bool
	logger   *slog.Logger
}

type fileSnapshot struct {
	exists  bool
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a polling watcher for path.
func NewPollingWatcher(path string, interval time.Duration, logger *slog.Logger) *PollingWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollingWatcher{
		path:     path,
		interval: interval,
		events:   make(chan FileEvent, 16),
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

// Start records a baseline and polls until Stop or ctx is done.
func (p *PollingWatcher) Start(ctx context.Context) error {
	p.mu.Lock()
	p.last = snapshot(p.path)
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.poll()
		}
	}
}

func snapshot(path string) fileSnapshot {
	info, err := os.Stat(path)
	if err != nil {
		return fileSnapshot{}
	}
	return fileSnapshot{exists: true, modTime: info.ModTime(), size: info.Size()}
}

func (p *PollingWatcher) poll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := snapshot(p.path)
	prev := p.last
	p.last = cur

	var op Operation
	switch {
	case !prev.exists && cur.exists:
		op = OpCreate
	case prev.exists && !cur.exists:
		op = OpDelete
	case cur.exists && (prev.modTime != cur.modTime || prev.size != cur.size):
		op = OpModify
	default:
		return
	}
	p.emit(FileEvent{Path: p.path, Operation: op, Timestamp: time.Now()})
}

// emit must be called with p.mu held.
func (p *PollingWatcher) emit(event FileEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("polling_watcher_buffer_full",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()))
	}
}

// Stop stops the polling watcher. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}
