// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer TaskLogger with contextual
// helpers (component, task, turn) and domain specific logging helpers for
// tools, model calls and turns.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger defines the minimal logging interface used by every component.
// Arguments after the message are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// TaskLogger wraps slog.Logger adding contextual cloning helpers and
// domain convenience methods. It should be cheap to copy via With* methods.
type TaskLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]any
	component string
	taskID    string
	turnID    string
}

var _ Logger = (*TaskLogger)(nil)

// LoggerConfig configures construction of a TaskLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	NoColor     bool
	Component   string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr, CustomAttrs: map[string]any{}}
}

// NewLogger builds a TaskLogger from a config (or defaults if nil). The text
// format is rendered by tint; everything else is JSON.
func NewLogger(cfg *LoggerConfig) *TaskLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = tint.NewHandler(out, &tint.Options{
			Level:      slogLevel(cfg.Level),
			AddSource:  cfg.AddSource,
			TimeFormat: time.TimeOnly,
			NoColor:    cfg.NoColor,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Value.Kind() == slog.KindAny {
					if _, ok := a.Value.Any().(error); ok {
						return tint.Attr(9, a)
					}
				}
				return a
			},
		})
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource})
	}

	ctx := make(map[string]any, len(cfg.CustomAttrs))
	for k, v := range cfg.CustomAttrs {
		ctx[k] = v
	}
	return &TaskLogger{logger: slog.New(handler), level: cfg.Level, context: ctx, component: cfg.Component}
}

// NewDiscardLogger returns a TaskLogger that writes nowhere. Useful in tests
// that still want to exercise the structured helpers.
func NewDiscardLogger() *TaskLogger {
	return NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: io.Discard})
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *TaskLogger) clone() *TaskLogger {
	nl := *l
	nl.context = make(map[string]any, len(l.context))
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *TaskLogger) WithContext(key string, value any) *TaskLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (parser, dispatcher, turn, task).
func (l *TaskLogger) WithComponent(c string) *TaskLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithTask attaches task and turn identifiers. An empty turnID keeps the
// entry task scoped.
func (l *TaskLogger) WithTask(taskID, turnID string) *TaskLogger {
	nl := l.clone()
	nl.taskID = taskID
	nl.turnID = turnID
	return nl
}

func (l *TaskLogger) buildAttrs() []any {
	attrs := make([]any, 0, len(l.context)+3)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.taskID != "" {
		attrs = append(attrs, slog.String("task_id", l.taskID))
	}
	if l.turnID != "" {
		attrs = append(attrs, slog.String("turn_id", l.turnID))
	}
	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func (l *TaskLogger) log(level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}
	l.logger.Log(context.Background(), level, msg, append(l.buildAttrs(), args...)...)
}

// Debug logs at debug level.
func (l *TaskLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *TaskLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *TaskLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *TaskLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, l.level <= LogLevelError, msg, args...)
}

// ErrorWithStack logs an error plus a runtime stack snapshot.
func (l *TaskLogger) ErrorWithStack(err error, msg string, args ...any) {
	if l.level > LogLevelError {
		return
	}
	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)
	args = append(args,
		slog.String("error", err.Error()),
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("stack_trace", string(stack[:n])),
	)
	l.log(slog.LevelError, true, msg, args...)
}

// LogToolCall records execution details for a tool invocation.
func (l *TaskLogger) LogToolCall(tool string, dur time.Duration, success bool, err error) {
	args := []any{slog.String("tool_name", tool), slog.Duration("duration", dur), slog.Bool("success", success)}
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	if !success {
		l.log(slog.LevelError, l.level <= LogLevelError, "Tool execution failed", args...)
		return
	}
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, "Tool execution completed", args...)
}

// LogLLMCall records model call latency, token usage and success.
func (l *TaskLogger) LogLLMCall(model string, inputTokens, outputTokens int, dur time.Duration, success bool, err error) {
	args := []any{
		slog.String("model", model),
		slog.Int("input_tokens", inputTokens),
		slog.Int("output_tokens", outputTokens),
		slog.Duration("duration", dur),
		slog.Bool("success", success),
	}
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	if !success {
		l.log(slog.LevelError, l.level <= LogLevelError, "LLM call failed", args...)
		return
	}
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, "LLM call completed", args...)
}

// LogTurn records the outcome of one request/stream/present cycle.
func (l *TaskLogger) LogTurn(segments, tools int, cont bool, dur time.Duration, err error) {
	args := []any{
		slog.Int("segment_count", segments),
		slog.Int("tool_count", tools),
		slog.Bool("continue", cont),
		slog.Duration("duration", dur),
	}
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
		l.log(slog.LevelError, l.level <= LogLevelError, "Turn failed", args...)
		return
	}
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, "Turn completed", args...)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// NewSlogLogger creates a new TaskLogger with the specified configuration.
func NewSlogLogger(level LogLevel, format string, addSource bool) *TaskLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}

// ToolCall logs a tool invocation on any Logger, using the structured
// TaskLogger form when available.
func ToolCall(l Logger, tool string, dur time.Duration, err error) {
	if tl, ok := l.(*TaskLogger); ok {
		tl.LogToolCall(tool, dur, err == nil, err)
		return
	}
	if err != nil {
		l.Error("tool.call.error", "tool", tool, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}
	l.Info("tool.call.success", "tool", tool, "duration_ms", dur.Milliseconds())
}

// LLMCall logs one backend stream on any Logger, using the structured
// TaskLogger form when available.
func LLMCall(l Logger, model string, inputTokens, outputTokens int, dur time.Duration, err error) {
	if tl, ok := l.(*TaskLogger); ok {
		tl.LogLLMCall(model, inputTokens, outputTokens, dur, err == nil, err)
		return
	}
	if err != nil {
		l.Error("model.call.error", "model", model, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}
	l.Info("model.call.success", "model", model,
		"input_tokens", inputTokens, "output_tokens", outputTokens, "duration_ms", dur.Milliseconds())
}
