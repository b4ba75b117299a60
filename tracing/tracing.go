// Package tracing 提供基于 OpenTelemetry 的分布式追踪基础设施与定价调用的 Span 属性.
package tracing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/lookback/config"
	"github.com/wyfcoding/lookback/xerrors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/wyfcoding/lookback"

// 定价 Span 的属性键.
const (
	KindKey   = attribute.Key("lookback.kind")
	SpotKey   = attribute.Key("lookback.spot")
	SigmaKey  = attribute.Key("lookback.sigma")
	RateKey   = attribute.Key("lookback.rate")
	TTMKey    = attribute.Key("lookback.ttm")
	PathsKey  = attribute.Key("lookback.paths")
	GreekKey  = attribute.Key("lookback.greek")
	ErrorCode = attribute.Key("error.code")
)

// InitTracer 初始化 OTLP gRPC 导出器并设为全局 TracerProvider. 未启用时返回空操作的关闭函数.
func InitTracer(cfg config.TracingConfig) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	ctx := context.Background()
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplerRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("tracer provider initialized", "service", cfg.ServiceName, "endpoint", cfg.OTLPEndpoint, "ratio", cfg.SamplerRatio)
	return tp.Shutdown, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// StartSpan 创建并开始一个新的 Span. 调用者负责调用 span.End().
//
//nolint:spancheck // 通用包装器，由调用方管理生命周期.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// PriceAttrs 返回一次定价调用的输入属性.
func PriceAttrs(kind string, s, sigma, r, t float64, n int) []attribute.KeyValue {
	return []attribute.KeyValue{
		KindKey.String(kind),
		SpotKey.Float64(s),
		SigmaKey.Float64(sigma),
		RateKey.Float64(r),
		TTMKey.Float64(t),
		PathsKey.Int(n),
	}
}

// Annotate 为当前活动的 Span 追加属性，Span 未采样时不做任何事.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// SetError 将错误记录到当前 Span 并标记为 codes.Error，业务错误额外记录错误码.
func SetError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if e, ok := xerrors.FromError(err); ok {
		span.SetAttributes(ErrorCode.Int(e.Code))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, xerrors.Reason(err))
}

// GetTraceID 返回当前链路的追踪 ID.
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		return spanCtx.TraceID().String()
	}
	return ""
}
