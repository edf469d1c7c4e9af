// Package logging provides the structured JSON logger shared by the
// fulfillment services. One line per entry on stdout, errors carry a stack.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"
)

// ErrorObject represents the error format.
type ErrorObject struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack"`
}

// LogEntry represents the structured log format.
type LogEntry struct {
	Timestamp     string       `json:"timestamp"`
	Level         string       `json:"level"`
	Service       string       `json:"service"`
	Action        string       `json:"action"`
	Message       string       `json:"message"`
	Hostname      string       `json:"hostname"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	Error         *ErrorObject `json:"error,omitempty"`
	Details       any          `json:"details,omitempty"`
}

// Logger is a structured logger bound to one service name.
type Logger struct {
	service  string
	hostname string
	out      io.Writer
}

// NewLogger creates a logger writing JSON lines to stdout.
func NewLogger(service string) *Logger {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &Logger{
		service:  service,
		hostname: hostname,
		out:      os.Stdout,
	}
}

// NewLoggerWithWriter is used by tests to capture output.
func NewLoggerWithWriter(service string, out io.Writer) *Logger {
	l := NewLogger(service)
	l.out = out
	return l
}

type ctxKey string

const correlationIDKey ctxKey = "correlation_id"

// WithCorrelationID returns a context carrying the saga correlation id,
// which for this system is the order id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation id stored in ctx, if any.
func CorrelationID(ctx context.Context) string {
	if v := ctx.Value(correlationIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (l *Logger) emit(entry LogEntry) {
	b, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log marshal failed: %v\n", err)
		return
	}
	fmt.Fprintln(l.out, string(b))
}

func (l *Logger) entry(ctx context.Context, level, action, msg string) LogEntry {
	return LogEntry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Level:         level,
		Service:       l.service,
		Action:        action,
		Message:       msg,
		Hostname:      l.hostname,
		CorrelationID: CorrelationID(ctx),
	}
}

func (l *Logger) Info(ctx context.Context, action, msg string, details any) {
	e := l.entry(ctx, "INFO", action, msg)
	e.Details = details
	l.emit(e)
}

func (l *Logger) Debug(ctx context.Context, action, msg string, details any) {
	e := l.entry(ctx, "DEBUG", action, msg)
	e.Details = details
	l.emit(e)
}

func (l *Logger) Warn(ctx context.Context, action, msg string, details any) {
	e := l.entry(ctx, "WARN", action, msg)
	e.Details = details
	l.emit(e)
}

func (l *Logger) Error(ctx context.Context, action, msg string, err error) {
	e := l.entry(ctx, "ERROR", action, msg)
	e.Error = &ErrorObject{
		Msg:   err.Error(),
		Stack: string(debug.Stack()),
	}
	l.emit(e)
}
