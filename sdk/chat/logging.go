package chat

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel represents the logging level.
type LogLevel int

const (
	// LevelDebug logs every frame and request.
	LevelDebug LogLevel = iota
	// LevelInfo logs stream lifecycle messages.
	LevelInfo
	// LevelWarn logs dropped frames and orphaned tool results.
	LevelWarn
	// LevelError logs transport failures only.
	LevelError
	// LevelOff disables all logging.
	LevelOff
)

// LogEnvVar is the environment variable read by NewLoggerFromEnv.
const LogEnvVar = "PEANUT_LOG_LEVEL"

// Logger wraps slog for the stream consumer.
type Logger struct {
	slog  *slog.Logger
	level LogLevel
}

// Library use is silent unless a logger is configured or PEANUT_LOG_LEVEL
// is set.
var defaultLogger = NewLoggerFromEnv()

// SetLogger sets the package default logger.
func SetLogger(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// GetLogger returns the package default logger.
func GetLogger() *Logger {
	return defaultLogger
}

// ParseLogLevel converts a level name to a LogLevel. Unknown names map to
// LevelOff.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelOff
	}
}

// NewLogger creates a logger with the given level writing to w.
func NewLogger(level LogLevel, w io.Writer) *Logger {
	if level == LevelOff {
		return &Logger{level: LevelOff}
	}
	if w == nil {
		w = os.Stderr
	}

	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format("15:04:05.000"))
			}
			return a
		},
	}

	return &Logger{
		slog:  slog.New(slog.NewTextHandler(w, opts)),
		level: level,
	}
}

// NewLoggerFromEnv creates a logger from PEANUT_LOG_LEVEL, writing to
// stderr. Defaults to LevelOff.
func NewLoggerFromEnv() *Logger {
	return NewLogger(ParseLogLevel(os.Getenv(LogEnvVar)), os.Stderr)
}

// IsEnabled returns true if logging is enabled at any level.
func (l *Logger) IsEnabled() bool {
	return l != nil && l.level != LevelOff && l.slog != nil
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	if l.IsEnabled() && l.level <= LevelDebug {
		l.slog.Debug(msg, args...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	if l.IsEnabled() && l.level <= LevelInfo {
		l.slog.Info(msg, args...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	if l.IsEnabled() && l.level <= LevelWarn {
		l.slog.Warn(msg, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	if l.IsEnabled() && l.level <= LevelError {
		l.slog.Error(msg, args...)
	}
}

// With returns a logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	if !l.IsEnabled() {
		return l
	}
	return &Logger{
		slog:  l.slog.With(args...),
		level: l.level,
	}
}

// StreamLogger times one stream from request to terminal state.
type StreamLogger struct {
	logger    *Logger
	kind      string
	startTime time.Time
	frames    int
	dropped   int
}

// StartStream begins timing a stream of the given kind ("send", "regenerate").
func (l *Logger) StartStream(kind string) *StreamLogger {
	if !l.IsEnabled() {
		return &StreamLogger{logger: l, kind: kind}
	}
	l.Debug("stream started", "kind", kind)
	return &StreamLogger{
		logger:    l,
		kind:      kind,
		startTime: time.Now(),
	}
}

// Frame counts a dispatched frame.
func (s *StreamLogger) Frame() { s.frames++ }

// Dropped counts a frame that failed to parse.
func (s *StreamLogger) Dropped() { s.dropped++ }

// Finished logs the terminal state of the stream.
func (s *StreamLogger) Finished(outcome Outcome) {
	if !s.logger.IsEnabled() {
		return
	}
	s.logger.Info("stream finished",
		"kind", s.kind,
		"outcome", outcome.String(),
		"frames", s.frames,
		"dropped", s.dropped,
		"duration_ms", time.Since(s.startTime).Milliseconds(),
	)
}

// Failed logs a transport failure.
func (s *StreamLogger) Failed(err error) {
	if !s.logger.IsEnabled() {
		return
	}
	s.logger.Error("stream failed",
		"kind", s.kind,
		"error", err.Error(),
		"frames", s.frames,
		"duration_ms", time.Since(s.startTime).Milliseconds(),
	)
}
