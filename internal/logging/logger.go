package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a configured level name onto a slog level. An empty name
// selects info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// NewLogger builds the JSON logger used by every command. Unknown levels fall
// back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := ParseLevel(level)
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true, Level: lvl}))
	if err != nil {
		logger.Warn("invalid log level, using info", "level", level)
	}
	return logger
}
