package logger

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDField = "x-request-id"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	loggerKey
)

type Logger interface {
	Info(ctx context.Context, msg string, fields ...zap.Field)
	Debug(ctx context.Context, msg string, fields ...zap.Field)
	Warn(ctx context.Context, msg string, fields ...zap.Field)
	Error(ctx context.Context, msg string, fields ...zap.Field)
	Fatal(ctx context.Context, msg string, fields ...zap.Field)
}

type L struct {
	z *zap.Logger
}

// NewLogger builds a production zap logger; env "dev" lowers the level to debug.
func NewLogger(env string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if env == "dev" {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &L{z: z}, nil
}

// NewNop returns a logger that discards everything
func NewNop() Logger {
	return &L{z: zap.NewNop()}
}

func (l *L) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.z.Info(msg, withRequestID(ctx, fields)...)
}

func (l *L) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.z.Debug(msg, withRequestID(ctx, fields)...)
}

func (l *L) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.z.Warn(msg, withRequestID(ctx, fields)...)
}

func (l *L) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.z.Error(msg, withRequestID(ctx, fields)...)
}

func (l *L) Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	l.z.Fatal(msg, withRequestID(ctx, fields)...)
}

// Sync flushes buffered entries
func (l *L) Sync() error {
	return l.z.Sync()
}

func withRequestID(ctx context.Context, fields []zap.Field) []zap.Field {
	if id := RequestID(ctx); id != "" {
		return append(fields, zap.String(requestIDField, id))
	}
	return fields
}

// RequestID returns the request id carried by ctx, or "" if there is none
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithNewRequestID tags ctx with a fresh uuid request id
func WithNewRequestID(ctx context.Context) context.Context {
	return WithRequestID(ctx, uuid.NewString())
}

func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func FromContext(ctx context.Context) Logger {
	logger, ok := ctx.Value(loggerKey).(Logger)
	if !ok || logger == nil {
		return NewNop()
	}
	return logger
}
