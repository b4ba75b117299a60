package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lookback/config"
	"github.com/wyfcoding/lookback/xerrors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSpanHelpers(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "lookback.Price", PriceAttrs("call", 100, 0.2, 0.05, 1, 1000)...)
	Annotate(ctx, GreekKey.String("delta"))
	SetError(ctx, xerrors.ErrInvalidPathCount.WithDetail("n=0"))
	assert.NotEmpty(t, GetTraceID(ctx))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	assert.Equal(t, "lookback.Price", got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "path count must be positive: n=0", got.Status().Description)

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range got.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "call", attrs[KindKey].AsString())
	assert.Equal(t, int64(1000), attrs[PathsKey].AsInt64())
	assert.Equal(t, "delta", attrs[GreekKey].AsString())
	assert.Equal(t, int64(xerrors.ErrInvalidPathCount.Code), attrs[ErrorCode].AsInt64())
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}

func TestSetErrorNil(t *testing.T) {
	SetError(context.Background(), nil)
	assert.Empty(t, GetTraceID(context.Background()))
	assert.NotPanics(t, func() { SetError(context.Background(), errors.New("plain")) })
}
