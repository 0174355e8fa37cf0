// Package stclog provides the structured logger shared across the
// coordinator's components. It wraps zerolog the way Streamy's
// internal/logger wraps its logging backend: one small facade, derived
// per component via WithComponent, so call sites never import zerolog
// directly.
package stclog

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options configures a Logger at construction time.
type Options struct {
	Level   string // "debug", "info", "warn", "error"; default "info"
	Writer  io.Writer
	Human   bool // console-formatted output instead of JSON lines
	Service string
}

// Logger is a thin, component-scoped facade over zerolog.Logger.
type Logger struct {
	z zerolog.Logger
}

// New constructs a root Logger from Options.
func New(opts Options) Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	if opts.Human {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}
	}

	level := parseLevel(opts.Level)
	z := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	if opts.Service != "" {
		z = z.With().Str("service", opts.Service).Logger()
	}
	return Logger{z: z}
}

func parseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent derives a logger tagged with the given component name.
func (l Logger) WithComponent(component string) Logger {
	return Logger{z: l.z.With().Str("component", component).Logger()}
}

// WithStep derives a logger tagged with a step name, for per-step diagnostics.
func (l Logger) WithStep(step string) Logger {
	return Logger{z: l.z.With().Str("step", step).Logger()}
}

// Debug writes a debug-level message.
func (l Logger) Debug(msg string) { l.z.Debug().Msg(msg) }

// Info writes an informational message.
func (l Logger) Info(msg string) { l.z.Info().Msg(msg) }

// Warn writes a warning-level message.
func (l Logger) Warn(msg string) { l.z.Warn().Msg(msg) }

// Error writes an error-level message with the triggering error attached.
func (l Logger) Error(err error, msg string) {
	ev := l.z.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(msg)
}
