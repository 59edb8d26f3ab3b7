package trace

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	otelsdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var (
	otelOnce     sync.Once
	otelProvider *otelsdktrace.TracerProvider
)

// InitOpenTelemetry installs a process-wide TracerProvider sampling every
// trace (ParentBased + TraceIDRatioBased(1)) with no exporter registered.
// This exists purely for local span/structured-log correlation; it is
// intentionally never wired to an OTLP endpoint or any other tracing
// backend.
func InitOpenTelemetry() {
	otelOnce.Do(func() {
		sampler := otelsdktrace.ParentBased(otelsdktrace.TraceIDRatioBased(1))
		tp := otelsdktrace.NewTracerProvider(otelsdktrace.WithSampler(sampler))
		otel.SetTracerProvider(tp)
		otelProvider = tp
	})
}

// ShutdownOpenTelemetry flushes and releases the process-wide provider.
func ShutdownOpenTelemetry(ctx context.Context) error {
	if otelProvider == nil {
		return nil
	}
	return otelProvider.Shutdown(ctx)
}

// StartSpan starts an otel span for correlation purposes and backfills the
// package-level Context (crypto/rand hex ids) onto ctx if one is not
// already present, so downstream CallTelemetry records always carry the
// same hex trace/span id shape regardless of whether otel or this
// package minted the first id.
func StartSpan(ctx context.Context, tracerName, spanName string) (context.Context, oteltrace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, spanName)

	if _, ok := Current(ctx); !ok {
		ctx = With(ctx, New(nil))
	}
	return ctx, span
}
