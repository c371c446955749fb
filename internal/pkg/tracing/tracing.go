// Package tracing initializes the OpenTelemetry trace pipeline.
//
// Spans are exported over OTLP/HTTP. The HTTP middleware opens one span per
// request and the logger attaches the active trace id to every log line, so
// a transfer can be followed from the edge to the ledger rows it wrote.
package tracing

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "paycore-api"

// Config holds the trace export settings.
type Config struct {
	Enabled bool
	// Endpoint is the OTLP/HTTP collector address (host:port)
	Endpoint string
	// SampleRate is the fraction of traces kept, 0.0 to 1.0
	SampleRate float64
	// Environment tags exported spans (development, staging, production)
	Environment string
	// Version tags exported spans with the running build
	Version string
}

// ShutdownFunc flushes and stops the trace pipeline.
type ShutdownFunc func(context.Context) error

// Init installs the global tracer provider and propagator.
//
// With Enabled false a provider that records nothing is installed and the
// returned shutdown is a no-op, so callers never branch on the setting.
// Outside production the exporter speaks plain HTTP; local collectors do
// not terminate TLS.
func Init(ctx context.Context, cfg Config, log *slog.Logger) (ShutdownFunc, error) {
	if !cfg.Enabled {
		log.Info("tracing disabled")
		otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample())))
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Environment != "production" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(samplerFor(cfg.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	log.Info("tracing initialized",
		slog.String("endpoint", cfg.Endpoint),
		slog.Float64("sample_rate", cfg.SampleRate),
		slog.String("environment", cfg.Environment),
	)

	return tp.Shutdown, nil
}

// samplerFor maps the configured rate onto a sampler.
func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
