package watcher

import (
	"time"
)

// Operation is what happened to the watched config file.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	// OpRename means the file was moved away, as editors do on atomic save.
	OpRename
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed change to an absolute Path.
type FileEvent struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Options tunes a FileWatcher. Zero values take the defaults from
// DefaultOptions.
type Options struct {
	// DebounceWindow is how long the file must be quiet before a batch is
	// emitted.
	DebounceWindow time.Duration
	// PollInterval applies only when fsnotify is unavailable or skipped.
	PollInterval time.Duration
	// EventBufferSize bounds the batches waiting for the reloader; further
	// batches are dropped and counted.
	EventBufferSize int
	ForcePolling    bool
}

// DefaultOptions returns a 500ms debounce, a 2s poll interval and room for
// 16 pending batches.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    2 * time.Second,
		EventBufferSize: 16,
	}
}

// WithDefaults fills zero or negative fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = def.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = def.EventBufferSize
	}
	return o
}
