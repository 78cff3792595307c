package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

// Context keys. A ledgerctl run carries one request ID and, when given,
// the operator that issued the command.
const (
	LoggerKey    contextKey = "logger"
	RequestIDKey contextKey = "request_id"
	ActorIDKey   contextKey = "actor_id"
)

// WithContext stores logger in ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores requestID in ctx together with a logger that
// already carries it
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return withID(ctx, logger, RequestIDKey, requestID)
}

// WithActorID stores the operator ID in ctx together with a logger that
// already carries it
func WithActorID(ctx context.Context, logger *zap.Logger, actorID string) (context.Context, *zap.Logger) {
	return withID(ctx, logger, ActorIDKey, actorID)
}

func withID(ctx context.Context, logger *zap.Logger, key contextKey, id string) (context.Context, *zap.Logger) {
	logger = logger.With(zap.String(string(key), id))
	ctx = context.WithValue(ctx, key, id)
	return WithContext(ctx, logger), logger
}

// GetRequestID returns the request ID in ctx, or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetActorID returns the operator ID in ctx, or ""
func GetActorID(ctx context.Context) string {
	id, _ := ctx.Value(ActorIDKey).(string)
	return id
}

// GetTraceID returns the trace ID of the span in ctx, or ""
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID of the span in ctx, or ""
func GetSpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}

// WithTraceContext adds trace_id and span_id to logger when ctx holds a
// valid span
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// ContextLogger logs with the correlation fields found in its context.
//
//	logger.WithLogger(ctx, s.logger).Info("Receivable payment registered",
//		zap.String("payment_number", number))
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
	// set when logger came from ctx and so already carries the IDs
	hasIDs bool
}

// L logs through the logger stored in ctx
func L(ctx context.Context) *ContextLogger {
	_, stored := ctx.Value(LoggerKey).(*zap.Logger)
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx), hasIDs: stored}
}

// WithLogger logs through logger, adding request_id and actor_id from ctx.
// Services hold their own named logger and use this form.
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: logger}
}

func (cl *ContextLogger) enriched() *zap.Logger {
	l := cl.logger
	if l == nil {
		return zap.NewNop()
	}
	l = WithTraceContext(cl.ctx, l)
	if cl.hasIDs {
		return l
	}
	if id := GetRequestID(cl.ctx); id != "" {
		l = l.With(zap.String("request_id", id))
	}
	if id := GetActorID(cl.ctx); id != "" {
		l = l.With(zap.String("actor_id", id))
	}
	return l
}

// With returns a child logger with extra fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	child := *cl
	if child.logger != nil {
		child.logger = child.logger.With(fields...)
	}
	return &child
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.enriched().Debug(msg, fields...) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.enriched().Info(msg, fields...) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.enriched().Warn(msg, fields...) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.enriched().Error(msg, fields...) }

// Zap returns the enriched *zap.Logger for APIs that need one
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enriched()
}

// Sugar returns the enriched logger in printf style
func (cl *ContextLogger) Sugar() *zap.SugaredLogger {
	return cl.enriched().Sugar()
}
