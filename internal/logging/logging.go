package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the level and destinations of the process logger.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// FilePath enables a rotated log file. Empty means no file.
	FilePath string
	// MaxSizeMB is the rotation threshold (default 10).
	MaxSizeMB int
	// MaxFiles is the number of rotated files kept (default 5).
	MaxFiles int
	// WriteToStderr also sends records to stderr. Without a file, stderr
	// is always used.
	WriteToStderr bool
}

// DefaultConfig logs info and above to stderr only.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig is DefaultConfig at debug level with the default log file.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.FilePath = DefaultLogPath()
	return cfg
}

// Setup builds a JSON logger from cfg. The returned cleanup flushes and
// closes the log file, if any.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	out, cleanup, err := cfg.output()
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: LevelFromString(cfg.Level),
	})
	return slog.New(handler), cleanup, nil
}

func (c Config) output() (io.Writer, func(), error) {
	if c.FilePath == "" {
		return os.Stderr, func() {}, nil
	}

	file, err := NewRotatingWriter(c.FilePath, c.MaxSizeMB, c.MaxFiles)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = file.Sync()
		_ = file.Close()
	}
	if c.WriteToStderr {
		return io.MultiWriter(file, os.Stderr), cleanup, nil
	}
	return file, cleanup, nil
}

// LevelFromString maps a level name to a slog.Level, case-insensitively.
// Unknown names map to info.
func LevelFromString(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ValidLevel reports whether level names one of the four levels.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
