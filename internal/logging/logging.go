// Package logging selects the slog handler for the process.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"gatewire/config"
)

// ParseLevel maps a level name to a slog.Level. Unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// NewHandler returns a colorized tint handler when format is "text", or
// when format is empty and tty is true. Everything else logs JSON.
func NewHandler(cfg config.LoggingConfig, out io.Writer, tty bool) slog.Handler {
	level := ParseLevel(cfg.Level)
	format := strings.ToLower(cfg.Format)

	if format == "text" || (format == "" && tty) {
		return tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !tty,
		})
	}
	return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
}

// Setup installs the default logger writing to stdout.
func Setup(cfg config.LoggingConfig) *slog.Logger {
	tty := term.IsTerminal(int(os.Stdout.Fd()))
	logger := slog.New(NewHandler(cfg, os.Stdout, tty))
	slog.SetDefault(logger)
	return logger
}
