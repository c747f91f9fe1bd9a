package logger

import (
	"log/slog"
	"os"
	"strings"
)

var instance = newLogger(slog.LevelInfo)

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// Init replaces the process-wide logger with one at the given level.
func Init(level string) {
	instance = newLogger(parseLevel(level))
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

func Debug(msg string, args ...any) {
	instance.Debug(msg, normalize(args)...)
}

func Info(msg string, args ...any) {
	instance.Info(msg, normalize(args)...)
}

func Warn(msg string, args ...any) {
	instance.Warn(msg, normalize(args)...)
}

func Error(msg string, args ...any) {
	instance.Error(msg, normalize(args)...)
}

// normalize lets callers pass a bare error, e.g. logger.Error("Repo:Create", err).
func normalize(args []any) []any {
	if len(args) == 1 {
		if err, ok := args[0].(error); ok {
			return []any{"error", err}
		}
	}
	return args
}
