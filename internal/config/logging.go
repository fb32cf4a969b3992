package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// ParseLevel parses debug, info, warn or error. An empty level is warn.
func ParseLevel(level string) (slog.Level, error) {
	if level == "" {
		return slog.LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("unknown log-level: %s", level)
	}
	return l, nil
}

// NewLogger creates a text logger on w at the configured level.
func NewLogger(w io.Writer, s *Settings) *slog.Logger {
	level, err := ParseLevel(s.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Log logs the resolved settings in a granular way
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: hosts", "value", s.Hosts)
	logger.InfoContext(ctx, "Config: index", "value", s.Index)
	logger.InfoContext(ctx, "Config: state_dir", "value", s.StateDir)
	logger.InfoContext(ctx, "Config: log_level", "value", s.LogLevel)
	logger.InfoContext(ctx, "Config: search.size", "value", s.Search.Size)
	logger.DebugContext(ctx, "Config: mcp.name", "value", s.MCP.Name)
}
