// Package observability provides OpenTelemetry tracing and metrics for the
// authorization gate: OTLP export plus counters and latency histograms for
// decisions, denials and authority failures.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string        // e.g., "localhost:4317" for gRPC
	SampleRate     float64       // 0.0 to 1.0
	BatchTimeout   time.Duration // How long to wait before sending batched spans
	Enabled        bool
	Insecure       bool // Use insecure connection (dev only)
}

// DefaultConfig returns development defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "predicate-gate",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        true,
		Insecure:       false,
	}
}

// Provider manages OpenTelemetry trace and metric providers.
type Provider struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	decisionCounter metric.Int64Counter
	denialCounter   metric.Int64Counter
	authorityErrors metric.Int64Counter
	decisionLatency metric.Float64Histogram
}

// New creates a new observability provider. A disabled config returns a
// provider whose recording methods are no-ops.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Provider{
		config: config,
		logger: slog.Default().With("component", "observability"),
	}

	if !config.Enabled {
		p.logger.InfoContext(ctx, "observability disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := p.initTraceProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to init trace provider: %w", err)
	}
	if err := p.initMetricProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to init metric provider: %w", err)
	}

	p.tracer = otel.Tracer("predicate-gate",
		trace.WithInstrumentationVersion(config.ServiceVersion),
	)
	p.meter = otel.Meter("predicate-gate",
		metric.WithInstrumentationVersion(config.ServiceVersion),
	)

	if err := p.initDecisionMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init decision metrics: %w", err)
	}

	p.logger.InfoContext(ctx, "observability initialized",
		"service", config.ServiceName,
		"environment", config.Environment,
		"endpoint", config.OTLPEndpoint,
		"sample_rate", config.SampleRate,
	)

	return p, nil
}

func (p *Provider) initTraceProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint),
	}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case p.config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case p.config.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(p.config.SampleRate)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(p.config.BatchTimeout),
		),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

func (p *Provider) initMetricProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint),
	}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second),
		)),
	)

	otel.SetMeterProvider(p.meterProvider)
	return nil
}

func (p *Provider) initDecisionMetrics() error {
	var err error

	p.decisionCounter, err = p.meter.Int64Counter("predicate.decisions.total",
		metric.WithDescription("Total authorization decisions returned"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return err
	}

	p.denialCounter, err = p.meter.Int64Counter("predicate.denials.total",
		metric.WithDescription("Authorization decisions that blocked execution"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return err
	}

	p.authorityErrors, err = p.meter.Int64Counter("predicate.authority_errors.total",
		metric.WithDescription("Authority calls that failed before producing a decision"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	p.decisionLatency, err = p.meter.Float64Histogram("predicate.decision.duration",
		metric.WithDescription("Authority round-trip duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	return err
}

// Shutdown flushes and shuts down the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "failed to shutdown trace provider", "error", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "failed to shutdown metric provider", "error", err)
		}
	}
	return nil
}

// Tracer returns the configured tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p.tracer == nil {
		return otel.Tracer("predicate-gate")
	}
	return p.tracer
}

// RecordDecision records one authority decision and its round-trip latency.
func (p *Provider) RecordDecision(ctx context.Context, decision *contracts.Decision, elapsed time.Duration, attrs ...attribute.KeyValue) {
	if p.decisionCounter == nil {
		return
	}
	attrs = append(attrs,
		attribute.Bool("predicate.allowed", decision.Allowed),
		attribute.String("predicate.reason", string(decision.Reason)),
	)
	opt := metric.WithAttributes(attrs...)
	p.decisionCounter.Add(ctx, 1, opt)
	if !decision.Allowed {
		p.denialCounter.Add(ctx, 1, opt)
	}
	p.decisionLatency.Record(ctx, elapsed.Seconds(), opt)
}

// RecordAuthorityError records an authority call that failed outright.
func (p *Provider) RecordAuthorityError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	if p.authorityErrors == nil {
		return
	}
	attrs = append(attrs, attribute.String("error.type", fmt.Sprintf("%T", err)))
	p.authorityErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}
