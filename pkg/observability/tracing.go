// Package observability provides OpenTelemetry tracing for blockstream
// stream operators.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer name used for operator spans.
const InstrumentationName = "github.com/ajitpratap0/blockstream"

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	SamplingRate   float64
	// Output receives exported spans; stdout when nil
	Output io.Writer
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracing installs a global tracer provider exporting to cfg.Output.
func InitTracing(cfg TracingConfig) (ShutdownFunc, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	// Configure sampling
	var sampler sdktrace.Sampler
	if cfg.SamplingRate <= 0 {
		sampler = sdktrace.NeverSample()
	} else if cfg.SamplingRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the operator tracer from the global provider. Before
// InitTracing it is a no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// StartPull starts a span around one pull of an operator.
func StartPull(ctx context.Context, operator, id string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, operator+".Next",
		trace.WithAttributes(
			attribute.String("operator.name", operator),
			attribute.String("operator.id", id),
		),
	)
}

// EndPull records the pull outcome on span and ends it.
func EndPull(span trace.Span, rows int64, end bool, err error) {
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case end:
		span.SetAttributes(attribute.Bool("stream.end", true))
		span.SetStatus(codes.Ok, "")
	default:
		span.SetAttributes(attribute.Int64("batch.rows", rows))
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
