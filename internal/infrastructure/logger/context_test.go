package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)), &buf
}

func TestFromContext(t *testing.T) {
	log, _ := bufferLogger()

	assert.NotNil(t, FromContext(context.Background()))
	assert.Same(t, log, FromContext(WithContext(context.Background(), log)))

	wrong := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotNil(t, FromContext(wrong))
}

func TestContextIDs(t *testing.T) {
	log, _ := bufferLogger()
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetActorID(ctx))

	ctx, _ = WithRequestID(ctx, log, "run-1")
	ctx, enriched := WithActorID(ctx, log, "operator-7")

	assert.Equal(t, "run-1", GetRequestID(ctx))
	assert.Equal(t, "operator-7", GetActorID(ctx))
	assert.Same(t, enriched, FromContext(ctx))
}

func TestContextLogger_EnrichesEntries(t *testing.T) {
	log, buf := bufferLogger()

	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, log, "run-1")
	ctx, _ = WithActorID(ctx, log, "operator-7")

	WithLogger(ctx, log).Info("payment registered", zap.String("payment_number", "PCXC-2024-00001"))

	out := buf.String()
	assert.Contains(t, out, `"request_id":"run-1"`)
	assert.Contains(t, out, `"actor_id":"operator-7"`)
	assert.Contains(t, out, `"payment_number":"PCXC-2024-00001"`)
	assert.NotContains(t, out, "trace_id")
}

func TestContextLogger_AddsTraceCorrelation(t *testing.T) {
	log, buf := bufferLogger()
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "consolidate")
	defer span.End()

	require.NotEmpty(t, GetTraceID(ctx))
	require.NotEmpty(t, GetSpanID(ctx))

	WithLogger(ctx, log).Warn("slow consolidation")
	assert.Contains(t, buf.String(), `"trace_id":"`+GetTraceID(ctx)+`"`)
	assert.Contains(t, buf.String(), `"span_id":"`+GetSpanID(ctx)+`"`)

	buf.Reset()
	WithTraceContext(ctx, log).Info("direct")
	assert.Contains(t, buf.String(), GetTraceID(ctx))
}

func TestTraceHelpers_NoSpan(t *testing.T) {
	log, _ := bufferLogger()
	ctx := context.Background()

	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
	assert.Same(t, log, WithTraceContext(ctx, log))
}

func TestContextLogger_NilLoggerAndChaining(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() { cl.Info("dropped") })

	log, buf := bufferLogger()
	child := L(WithContext(context.Background(), log)).With(zap.String("side", "CXC"))
	child.Error("numbering failed")
	child.Zap().Debug("via zap")
	child.Sugar().Infof("via %s", "sugar")

	out := buf.String()
	assert.Contains(t, out, `"side":"CXC"`)
	assert.Contains(t, out, "via zap")
	assert.Contains(t, out, "via sugar")
}

func TestL_DoesNotRepeatStoredIDs(t *testing.T) {
	log, buf := bufferLogger()
	ctx, _ := WithRequestID(context.Background(), log, "run-2")

	L(ctx).Info("balance read")

	assert.Equal(t, 1, strings.Count(buf.String(), `"request_id"`))
}
