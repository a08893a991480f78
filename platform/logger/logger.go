// Package logger wraps slog with the few event shapes the service emits.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a *slog.Logger with domain helpers.
type Logger struct {
	*slog.Logger
}

// New logs to stdout: text at debug level in development, JSON at info
// level anywhere else.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

func NewWithWriter(env string, w io.Writer) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// Discard drops everything. Tests use it.
func Discard() *Logger {
	return NewWithWriter("production", io.Discard)
}

// WithConversation tags every line with the business and customer ids.
func (l *Logger) WithConversation(businessID, customerID string) *Logger {
	return &Logger{Logger: l.With(
		slog.String("business_id", businessID),
		slog.String("customer_id", customerID),
	)}
}

func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error", slog.String("operation", operation), slog.String("error", err.Error()))
}

// ChannelError records a message the channel refused or never accepted.
func (l *Logger) ChannelError(to string, err error) {
	l.Error("channel_error", slog.String("to", to), slog.String("error", err.Error()))
}

// GenerationError records a failed model call.
func (l *Logger) GenerationError(model string, err error) {
	l.Error("generation_error", slog.String("model", model), slog.String("error", err.Error()))
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded", slog.String("client_ip", clientIP), slog.String("path", path))
}
