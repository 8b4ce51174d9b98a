// Package log builds the diagnostic zap logger used for polling attempts and
// API calls. User-facing output goes through pkg/notify instead.
package log

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugEnvVar enables debug logging when set to a true value.
const DebugEnvVar = "MAASCTL_DEBUG"

type contextKey string

const loggerKey contextKey = "logger"

// New returns a console logger writing debug entries to writer when verbose
// is set, and a no-op logger otherwise.
func New(verbose bool, writer io.Writer) *zap.Logger {
	if !verbose || writer == nil {
		return zap.NewNop()
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(writer),
		zap.NewAtomicLevelAt(zapcore.DebugLevel),
	)

	return zap.New(core)
}

// ParseLevel converts a textual level such as "debug" to a zapcore.Level.
func ParseLevel(level string) (zapcore.Level, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return parsed, nil
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}

	return zap.NewNop()
}

// Debug logs a debug message with the logger stored in ctx.
func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Debug(msg, fields...)
}
