package otel

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const ScopeName = "github.com/kofuk/homedns"

// InitializeTracer installs an OTLP exporter when OTEL_EXPORTER_OTLP_ENDPOINT is
// set. The returned provider is nil when tracing is disabled.
func InitializeTracer(ctx context.Context) (*sdktrace.TracerProvider, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		// Silently disable tracing
		return nil, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", "homedns")),
	)
	if err != nil {
		return nil, err
	}
	if detected, err := resource.Detect(ctx); err == nil {
		if merged, err := resource.Merge(res, detected); err == nil {
			res = merged
		}
	}

	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	return tp, nil
}

func Tracer() trace.Tracer {
	return otel.Tracer(ScopeName)
}

func TraceContextFromContext(ctx context.Context) string {
	var tc propagation.TraceContext
	carrier := make(propagation.MapCarrier)
	tc.Inject(ctx, carrier)
	return carrier.Get("traceparent")
}

func ContextFromTraceContext(ctx context.Context, traceContext string) context.Context {
	if traceContext == "" {
		return ctx
	}
	var tc propagation.TraceContext
	carrier := make(propagation.MapCarrier)
	carrier.Set("traceparent", traceContext)
	return tc.Extract(ctx, carrier)
}
