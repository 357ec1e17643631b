package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"lite-drive/internal/config"
)

func ParseLevel(level string) slog.Level {
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

// Setup installs a JSON slog logger as the process default. Logs go to stdout
// unless cfg.Path is set, in which case a rotating file is used.
func Setup(cfg config.LogConfig) *slog.Logger {
	var writer io.Writer = os.Stdout
	if cfg.Path != "" {
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}))
	slog.SetDefault(l)
	return l
}
