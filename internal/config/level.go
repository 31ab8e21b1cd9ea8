package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// ParseLogLevel converts a level name to a slog.Level.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Wrapf(ErrInvalidConfig, "unknown log level %q", name)
	}
}
