// Package telemetry configures OpenTelemetry tracing for crondeck. Spans
// are exported over OTLP/HTTP when an endpoint is configured; otherwise the
// global no-op provider stays in place.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "crondeck"

// Config holds telemetry configuration.
type Config struct {
	// Endpoint is the OTLP/HTTP collector URL, e.g. "http://localhost:4318".
	// Empty disables export.
	Endpoint string `yaml:"endpoint"`

	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers"`

	// SampleRate is 0 (never), (0,1) (ratio) or >= 1 (always). Nil means always.
	SampleRate *float64 `yaml:"sample_rate"`
}

// Enabled reports whether spans are exported.
func (c Config) Enabled() bool { return c.Endpoint != "" }

// Provider wraps the SDK tracer provider, if any.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Tracer returns a named tracer from the configured provider, or from the
// global one when export is disabled.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p == nil || p.tp == nil {
		return otel.Tracer(name)
	}
	return p.tp.Tracer(name)
}

// Shutdown flushes pending spans. Safe on a disabled provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return nil
}

// New creates a Provider from cfg and installs it as the global tracer
// provider. A disabled config returns a Provider backed by the global no-op.
func New(ctx context.Context, cfg Config, version string) (*Provider, error) {
	if !cfg.Enabled() {
		return &Provider{}, nil
	}

	opts, err := exporterOptions(cfg)
	if err != nil {
		return nil, err
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp}, nil
}

// exporterOptions translates the endpoint URL into exporter options.
func exporterOptions(cfg Config) ([]otlptracehttp.Option, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry: parsing endpoint: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("telemetry: endpoint %q has no host", cfg.Endpoint)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(u.Host)}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	if base := strings.TrimSuffix(u.Path, "/"); base != "" {
		opts = append(opts, otlptracehttp.WithURLPath(base+"/v1/traces"))
	}
	if u.Scheme == "http" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts, nil
}

func sampler(rate *float64) sdktrace.Sampler {
	switch {
	case rate == nil || *rate >= 1:
		return sdktrace.AlwaysSample()
	case *rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(*rate)
	}
}
