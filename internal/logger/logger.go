package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fenwick-run/agentctl/pkg/trace"
)

// Sink wraps a zerolog.Logger with the rotation and redaction writers this
// module needs, plus a helper for attaching Trace Context (pkg/trace) fields
// to a log line so telemetry and log output can be correlated by trace id.
type Sink struct {
	logger   zerolog.Logger
	rotating *RotatingWriter
	redactor *Redactor
}

// Config configures Sink construction.
type Config struct {
	Level     string // debug, info, warn, error
	Console   bool   // enable console output
	Pretty    bool   // pretty format for console
	Redaction bool   // enable sensitive data redaction
	Rotation  RotationPolicy
}

// RotationPolicy governs the file sink. A zero Path keeps logging on the
// console writer only — no file sink is opened.
type RotationPolicy struct {
	Path       string // log file path
	MaxSizeMB  int    // rotate once the file crosses this size
	MaxAgeDays int    // prune rotated files older than this
	Compress   bool   // gzip rotated files
}

// New builds a Sink from cfg. When cfg.Rotation.Path is set, file output is
// routed through a RotatingWriter so MaxSizeMB/MaxAgeDays/Compress actually
// take effect, rather than appending to an ever-growing file.
func New(cfg Config) (*Sink, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer

	if cfg.Console {
		var consoleWriter io.Writer = os.Stdout
		if cfg.Pretty {
			consoleWriter = zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: time.RFC3339,
			}
		}
		writers = append(writers, consoleWriter)
	}

	var rotating *RotatingWriter
	if cfg.Rotation.Path != "" {
		rotating, err = NewRotatingWriter(cfg.Rotation)
		if err != nil {
			return nil, fmt.Errorf("logger: open rotating sink: %w", err)
		}
		writers = append(writers, rotating)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	var redactor *Redactor
	if cfg.Redaction {
		redactor = NewRedactor()
		writer = redactor.Wrap(writer)
	}

	zl := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	log.Logger = zl

	return &Sink{logger: zl, rotating: rotating, redactor: redactor}, nil
}

// Close releases the file sink, if one was opened.
func (s *Sink) Close() error {
	if s.rotating != nil {
		return s.rotating.Close()
	}
	return nil
}

func (s *Sink) Debug() *zerolog.Event { return s.logger.Debug() }
func (s *Sink) Info() *zerolog.Event  { return s.logger.Info() }
func (s *Sink) Warn() *zerolog.Event  { return s.logger.Warn() }
func (s *Sink) Error() *zerolog.Event { return s.logger.Error() }
func (s *Sink) Fatal() *zerolog.Event { return s.logger.Fatal() }

// With starts a child-logger builder over the sink's base logger.
func (s *Sink) With() zerolog.Context { return s.logger.With() }

// Raw exposes the underlying zerolog.Logger for collaborators that expect
// one directly (e.g. wiring into a third-party library's own logger hook).
func (s *Sink) Raw() zerolog.Logger { return s.logger }

// WithTrace returns a child-logger builder carrying trace_id/span_id fields
// pulled from the Trace Context installed on ctx by pkg/trace, if any. A ctx
// with no installed trace context yields the sink's base logger unchanged,
// so callers can use this unconditionally on the request path.
func (s *Sink) WithTrace(ctx context.Context) zerolog.Context {
	zc := s.logger.With()
	if tc, ok := trace.Current(ctx); ok {
		zc = zc.Str("trace_id", tc.TraceID).Str("span_id", tc.SpanID)
	}
	return zc
}

// DefaultConfig returns conservative defaults: info level, pretty console
// output, redaction on, and a rotation policy sized for a single long-running
// daemon (no Path — callers set one before opening a file sink).
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Console:   true,
		Pretty:    true,
		Redaction: true,
		Rotation: RotationPolicy{
			MaxSizeMB:  100,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}
