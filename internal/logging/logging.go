// Package logging builds the process slog.Logger: a console or JSON handler on
// stdout, optionally fanned out to a Fluent Bit forwarder.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

// Config selects the log sinks.
type Config struct {
	Level  string // "debug", "info", "warn" or "error"
	Format string // "text" or "json"
	Color  bool   // colored text output; ignored for json
	Writer io.Writer
	Fluent FluentConfig
}

// FluentConfig points at a Fluent Bit forward input. An empty Host disables it.
type FluentConfig struct {
	Host      string
	Port      int
	TagPrefix string
	Level     string
}

// ParseLevel maps a level name to its slog level. Unknown names yield info and false.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New returns the configured logger and a close function that flushes the
// Fluent client, if any.
func New(cfg Config) (*slog.Logger, func() error, error) {
	level, ok := ParseLevel(cfg.Level)
	if !ok {
		return nil, nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	var console slog.Handler
	switch cfg.Format {
	case "json":
		console = slog.NewJSONHandler(cfg.Writer, &slog.HandlerOptions{Level: level})
	case "text", "":
		console = tint.NewHandler(cfg.Writer, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    !cfg.Color,
		})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.Fluent.Host == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	fluentLevel, ok := ParseLevel(cfg.Fluent.Level)
	if !ok {
		return nil, nil, fmt.Errorf("unknown fluent log level %q", cfg.Fluent.Level)
	}
	client, err := newFluentClient(cfg.Fluent)
	if err != nil {
		return nil, nil, err
	}
	handler := Fanout(console, NewFluentHandler(client, fluentLevel))
	return slog.New(handler), client.Close, nil
}

func newFluentClient(cfg FluentConfig) (*fluent.Fluent, error) {
	if cfg.TagPrefix == "" {
		return nil, errors.New("fluent tag prefix is required")
	}
	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.Host,
		FluentPort: cfg.Port,
		TagPrefix:  cfg.TagPrefix,
		// Connect lazily so a missing forwarder never blocks startup.
		Async: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fluent client: %w", err)
	}
	return client, nil
}
