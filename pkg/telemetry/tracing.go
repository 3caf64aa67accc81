package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	tracerName = "github.com/odvcencio/termmarkup/pkg/bridge"
)

// TracerProvider holds the OpenTelemetry tracer provider
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewTracerProvider creates a tracer provider that exports spans as JSON to
// w and installs it as the global provider.
func NewTracerProvider(serviceName, version string, w io.Writer) (*TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(provider)

	return &TracerProvider{
		provider: provider,
	}, nil
}

// Tracer returns a tracer from this provider.
func (tp *TracerProvider) Tracer() trace.Tracer {
	if tp == nil {
		return NoopTracer()
	}
	return tp.provider.Tracer(tracerName)
}

// Shutdown flushes pending spans and stops the provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(tracerName)
}

// Span attribute keys
var (
	AttrSessionID  = attribute.Key("termmarkup.session.id")
	AttrRemoteAddr = attribute.Key("termmarkup.session.remote_addr")
	AttrCommand    = attribute.Key("termmarkup.process.command")
	AttrPID        = attribute.Key("termmarkup.process.pid")
	AttrEndReason  = attribute.Key("termmarkup.session.end_reason")
	AttrRows       = attribute.Key("termmarkup.screen.rows")
	AttrCols       = attribute.Key("termmarkup.screen.cols")
	AttrChunkBytes = attribute.Key("termmarkup.frame.chunk_bytes")
	AttrBGBytes    = attribute.Key("termmarkup.frame.background_bytes")
	AttrFGBytes    = attribute.Key("termmarkup.frame.foreground_bytes")
)
