package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/go-logr/logr"
	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Configure installs the process-wide slog handler. Development environments,
// and terminals when no environment is set, get colored tint output; anything
// else logs JSON.
func Configure(levelStr string, env string) {
	slog.SetDefault(slog.New(NewHandler(os.Stdout, levelStr, env)))
}

func NewHandler(w io.Writer, levelStr string, env string) slog.Handler {
	level := parseLogLevel(levelStr)
	if useTint(w, env) {
		return tint.NewHandler(w, &tint.Options{Level: level, NoColor: !isTerminal(w)})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// Logr exposes the default slog handler as a logr.Logger for components that
// only need a leveled sink.
func Logr() logr.Logger {
	return logr.FromSlogHandler(slog.Default().Handler())
}

func useTint(w io.Writer, env string) bool {
	switch env {
	case "dev", "development":
		return true
	case "":
		return isTerminal(w)
	}
	return false
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
