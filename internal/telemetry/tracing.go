// Package telemetry sets up OpenTelemetry tracing for gateway RPC calls.
// The tracer provider is injected, never installed globally.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flemzord/sclaw-console/internal/config"
)

// Setup holds the tracer provider and a named tracer. A nil *Setup hands
// out a no-op tracer.
type Setup struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New creates a tracer provider exporting over OTLP/HTTP. It returns nil
// when tracing is disabled.
func New(ctx context.Context, cfg config.TelemetryConfig) (*Setup, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = config.DefaultServiceName
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating resource: %w", err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating OTLP exporter: %w", err)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
	)
	return &Setup{provider: tp, tracer: tp.Tracer(serviceName)}, nil
}

// NewWithProvider wraps an existing provider, typically one backed by an
// in-memory exporter in tests.
func NewWithProvider(tp *sdktrace.TracerProvider, name string) *Setup {
	return &Setup{provider: tp, tracer: tp.Tracer(name)}
}

// Tracer returns the tracer for RPC spans.
func (s *Setup) Tracer() trace.Tracer {
	if s == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return s.tracer
}

// Shutdown flushes pending spans.
func (s *Setup) Shutdown(ctx context.Context) error {
	if s == nil || s.provider == nil {
		return nil
	}
	return s.provider.Shutdown(ctx)
}
