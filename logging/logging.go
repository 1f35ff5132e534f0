// Package logging builds the slog loggers used across the kernel and the bounded contexts.
package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel names the environment variable consulted when Config.Level is empty.
const EnvLogLevel = "LOG_LEVEL"

// Supported output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// LogAttrComponent holds the (possibly nested) component prefix of a logger.
const LogAttrComponent = "component"

// ErrUnknownLevel is returned for a level other than debug, info, warn or error.
var ErrUnknownLevel = errors.New("unknown log level")

// ErrUnknownFormat is returned for a format other than json or text.
var ErrUnknownFormat = errors.New("unknown log format")

// Config describes a logger.
type Config struct {
	Level     string
	Format    string
	Component string
	Output    io.Writer
}

// Logger is a *slog.Logger that remembers its component, so children can nest it.
// It satisfies observability.Logger and observability.ContextualLogger.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to a slog.Level.
// An empty string means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Join(ErrUnknownLevel, errors.New(level))
	}
}

// New builds a logger writing JSON (default) or text to cfg.Output (default stdout).
// The level comes from cfg.Level, or from LOG_LEVEL when that is empty.
func New(cfg Config) (*Logger, error) {
	levelName := cfg.Level
	if levelName == "" {
		levelName = os.Getenv(EnvLogLevel)
	}

	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", FormatJSON:
		handler = slog.NewJSONHandler(out, opts)
	case FormatText:
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, errors.Join(ErrUnknownFormat, errors.New(cfg.Format))
	}

	return FromSlog(slog.New(handler), cfg.Component), nil
}

// FromSlog wraps an existing slog logger, e.g. one built on a test spy or the OpenTelemetry bridge.
func FromSlog(base *slog.Logger, component string) *Logger {
	logger := base
	if component != "" {
		logger = base.With(LogAttrComponent, component)
	}

	return &Logger{Logger: logger, base: base, component: component}
}

// Child returns a logger whose component is "<parent>:<prefix>".
func (l *Logger) Child(prefix string) *Logger {
	component := prefix
	if l.component != "" {
		component = l.component + ":" + prefix
	}

	return FromSlog(l.base, component)
}

// Component returns the nested component prefix.
func (l *Logger) Component() string {
	return l.component
}
