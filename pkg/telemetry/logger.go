package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogWithTrace logs msg at level, adding trace_id and span_id when ctx
// carries a recording span
func LogWithTrace(ctx context.Context, logger *zap.Logger, level zapcore.Level, msg string, fields ...zap.Field) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		spanContext := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", spanContext.TraceID().String()),
			zap.String("span_id", spanContext.SpanID().String()),
		)
	}

	if ce := logger.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

// InfoWithTrace logs at info level with trace context
func InfoWithTrace(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	LogWithTrace(ctx, logger, zapcore.InfoLevel, msg, fields...)
}

// DebugWithTrace logs at debug level with trace context
func DebugWithTrace(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	LogWithTrace(ctx, logger, zapcore.DebugLevel, msg, fields...)
}

// WarnWithTrace logs at warn level with trace context
func WarnWithTrace(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	LogWithTrace(ctx, logger, zapcore.WarnLevel, msg, fields...)
}

// ErrorWithTrace logs at error level with trace context
func ErrorWithTrace(ctx context.Context, logger *zap.Logger, msg string, fields ...zap.Field) {
	LogWithTrace(ctx, logger, zapcore.ErrorLevel, msg, fields...)
}
