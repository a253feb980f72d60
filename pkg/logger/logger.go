// Package logger builds the application's slog.Logger from configuration.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/paperqa/paperqa/pkg/config"
	"github.com/paperqa/paperqa/pkg/telemetry"
)

// New creates a logger per the log configuration. When telemetryDir is
// non-empty, error records are additionally captured to Parquet files in
// that directory.
func New(cfg config.LogConfig, telemetryDir string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	if telemetryDir != "" {
		parquetHandler, err := telemetry.NewParquetHandler(handler, telemetryDir)
		if err != nil {
			return nil, err
		}
		handler = parquetHandler
	}

	return slog.New(handler), nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
