package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
	level      = new(slog.LevelVar)
)

// initLogger initializes the global logger to write text records to stderr.
func initLogger() {
	loggerOnce.Do(func() {
		logger = newLogger(os.Stderr)
	})
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetOutput redirects log output. Mostly useful in tests.
func SetOutput(w io.Writer) {
	initLogger()
	logger = newLogger(w)
}

func SetLevel(l Level) {
	initLogger()
	switch l {
	case LevelDebug:
		level.Set(slog.LevelDebug)
	case LevelError:
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

// ParseLevel maps a config string to a Level; unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger exposes the underlying slog.Logger for libraries that want one.
func Logger() *slog.Logger {
	initLogger()
	return logger
}

func Debug(msg string, kv ...any) {
	logWithLevel(context.Background(), slog.LevelDebug, msg, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(context.Background(), slog.LevelInfo, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logWithLevel(context.Background(), slog.LevelError, msg, extended...)
}

// InfoContext is Info with request-scoped attributes (see WithRequestID).
func InfoContext(ctx context.Context, msg string, kv ...any) {
	logWithLevel(ctx, slog.LevelInfo, msg, kv...)
}

// ErrorContext is Error with request-scoped attributes.
func ErrorContext(ctx context.Context, msg string, err error, kv ...any) {
	extended := append([]any{"err", err}, kv...)
	logWithLevel(ctx, slog.LevelError, msg, extended...)
}

type requestIDKey struct{}

// WithRequestID stores a request ID that *Context helpers append to every record.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func logWithLevel(ctx context.Context, l slog.Level, msg string, kv ...any) {
	initLogger()
	if id := RequestID(ctx); id != "" {
		kv = append(kv, "request_id", id)
	}
	logger.Log(ctx, l, msg, kv...)
}
