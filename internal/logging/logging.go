// Package logging provides structured logging setup for house-broker.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Setup initializes the default slog logger on stderr.
// Dev mode uses colored human-readable text; prod uses JSON.
func Setup(devMode bool, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if devMode && level == "" {
		lvl = slog.LevelDebug
	}

	color := devMode && isatty.IsTerminal(os.Stderr.Fd())
	slog.SetDefault(slog.New(NewHandler(os.Stderr, devMode, color, lvl)))
	return nil
}

// NewHandler returns the handler Setup installs, writing to w.
func NewHandler(w io.Writer, devMode, color bool, level slog.Level) slog.Handler {
	if devMode {
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !color,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// ParseLevel maps debug, info, warn or error to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}
