// Package config holds process configuration: compiled defaults overlaid
// with MARKREVIEW_* environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultOpenDelayMS is how long the launch-document announcement
	// waits for the webview before the open event is emitted.
	DefaultOpenDelayMS = int64(2000)
	// DefaultWatchDebounceMS collapses filesystem event bursts.
	DefaultWatchDebounceMS = int64(200)
	// DefaultShellTimeoutMS bounds one shell command execution.
	DefaultShellTimeoutMS = int64(15000)
	// DefaultMaxOutputBytes caps captured stdout and stderr per stream.
	DefaultMaxOutputBytes = 128 * 1024
)

// Config carries all tunables for one process.
type Config struct {
	OpenDelayMS     int64
	WatchDebounceMS int64
	ShellTimeoutMS  int64
	MaxOutputBytes  int
	AllowedCommands []string
	ExtraRoots      []string
	LogLevel        slog.Level
}

// Defaults returns the compiled-in configuration.
func Defaults() Config {
	return Config{
		OpenDelayMS:     DefaultOpenDelayMS,
		WatchDebounceMS: DefaultWatchDebounceMS,
		ShellTimeoutMS:  DefaultShellTimeoutMS,
		MaxOutputBytes:  DefaultMaxOutputBytes,
		LogLevel:        slog.LevelInfo,
	}
}

// FromEnv overlays environment variables onto the defaults and clamps the
// result. Unparsable values are ignored rather than fatal.
func FromEnv() Config {
	cfg := Defaults()

	if value, ok := lookupInt64("MARKREVIEW_OPEN_DELAY_MS"); ok {
		cfg.OpenDelayMS = value
	}
	if value, ok := lookupInt64("MARKREVIEW_WATCH_DEBOUNCE_MS"); ok {
		cfg.WatchDebounceMS = value
	}
	if value, ok := lookupInt64("MARKREVIEW_SHELL_TIMEOUT_MS"); ok {
		cfg.ShellTimeoutMS = value
	}
	if value, ok := lookupInt64("MARKREVIEW_MAX_OUTPUT_BYTES"); ok {
		cfg.MaxOutputBytes = int(value)
	}
	if raw := strings.TrimSpace(os.Getenv("MARKREVIEW_ALLOWED_COMMANDS")); raw != "" {
		cfg.AllowedCommands = splitList(raw, ",")
	}
	if raw := strings.TrimSpace(os.Getenv("MARKREVIEW_EXTRA_ROOTS")); raw != "" {
		cfg.ExtraRoots = splitList(raw, string(os.PathListSeparator))
	}
	if raw := strings.TrimSpace(os.Getenv("MARKREVIEW_LOG_LEVEL")); raw != "" {
		if level, ok := parseLogLevel(raw); ok {
			cfg.LogLevel = level
		}
	}

	return Validate(cfg)
}

// Validate clamps numeric fields into safe ranges. The open delay keeps a
// positive floor so the environment cannot drop the announcement delay to
// zero.
func Validate(cfg Config) Config {
	if cfg.OpenDelayMS < 50 {
		cfg.OpenDelayMS = 50
	}
	if cfg.OpenDelayMS > 60_000 {
		cfg.OpenDelayMS = 60_000
	}
	if cfg.WatchDebounceMS < 50 {
		cfg.WatchDebounceMS = 50
	}
	if cfg.WatchDebounceMS > 10_000 {
		cfg.WatchDebounceMS = 10_000
	}
	if cfg.ShellTimeoutMS < 1000 {
		cfg.ShellTimeoutMS = 1000
	}
	if cfg.ShellTimeoutMS > 300_000 {
		cfg.ShellTimeoutMS = 300_000
	}
	if cfg.MaxOutputBytes < 1024 {
		cfg.MaxOutputBytes = 1024
	}
	if cfg.MaxOutputBytes > 10_485_760 {
		cfg.MaxOutputBytes = 10_485_760
	}
	return cfg
}

// OpenDelay returns the launch announcement delay as a duration.
func (c Config) OpenDelay() time.Duration {
	return time.Duration(c.OpenDelayMS) * time.Millisecond
}

// WatchDebounce returns the watcher debounce interval as a duration.
func (c Config) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

// ShellTimeout returns the shell command timeout as a duration.
func (c Config) ShellTimeout() time.Duration {
	return time.Duration(c.ShellTimeoutMS) * time.Millisecond
}

// Logger builds a stderr text logger honoring the configured level.
func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}

func lookupInt64(key string) (int64, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func splitList(raw string, separator string) []string {
	var values []string
	for _, part := range strings.Split(raw, separator) {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}

func parseLogLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
