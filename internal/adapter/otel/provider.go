package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Exporter names accepted by Config.Exporter.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
	ExporterNone   = "none"
)

// Config holds OpenTelemetry provider configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string  // "development" or "production"
	Exporter       string  // "stdout", "otlp" or "none"
	Insecure       bool    // use HTTP instead of HTTPS for OTLP
	SampleRatio    float64 // fraction of root traces kept; 0 means all
	MetricInterval time.Duration
	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer
}

// ConfigFromEnv builds Config from OTEL_* environment variables.
func ConfigFromEnv() Config {
	env := envOrDefault("OTEL_ENVIRONMENT", "development")
	return Config{
		ServiceName:    envOrDefault("OTEL_SERVICE_NAME", "roomlist"),
		ServiceVersion: envOrDefault("OTEL_SERVICE_VERSION", "0.1.0"),
		Environment:    env,
		Exporter:       envOrDefault("OTEL_EXPORTER", ExporterStdout),
		Insecure:       env == "development",
		SampleRatio:    ratioFromEnv("OTEL_TRACES_SAMPLER_RATIO"),
		MetricInterval: intervalFromEnv("OTEL_METRIC_EXPORT_INTERVAL"),
	}
}

func (c Config) validate() error {
	switch c.Exporter {
	case ExporterStdout, ExporterOTLP, ExporterNone:
		return nil
	}
	return fmt.Errorf("unsupported exporter: %q (use %q, %q or %q)",
		c.Exporter, ExporterStdout, ExporterOTLP, ExporterNone)
}

func (c Config) sampler() trace.Sampler {
	if c.SampleRatio > 0 && c.SampleRatio < 1 {
		return trace.ParentBased(trace.TraceIDRatioBased(c.SampleRatio))
	}
	return trace.ParentBased(trace.AlwaysSample())
}

// Providers holds initialized OTel providers and their shutdown function.
type Providers struct {
	Shutdown func(ctx context.Context) error
}

// Setup installs global tracer and meter providers plus W3C propagation.
// Providers.Shutdown must run on exit to flush pending telemetry.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("creating tracer provider: %w", err)
	}

	mp, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("creating meter provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Providers{Shutdown: func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}}, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(cfg.sampler()),
	}

	switch cfg.Exporter {
	case ExporterOTLP:
		var httpOpts []otlptracehttp.Option
		if cfg.Insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, httpOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, trace.WithBatcher(exporter))
	case ExporterStdout:
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Writer))
		if err != nil {
			return nil, err
		}
		opts = append(opts, trace.WithBatcher(exporter))
	}

	return trace.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	opts := []metric.Option{metric.WithResource(res)}

	var exporter metric.Exporter
	var err error
	switch cfg.Exporter {
	case ExporterOTLP:
		var httpOpts []otlpmetrichttp.Option
		if cfg.Insecure {
			httpOpts = append(httpOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, httpOpts...)
	case ExporterStdout:
		exporter, err = stdoutmetric.New(stdoutmetric.WithWriter(cfg.Writer))
	}
	if err != nil {
		return nil, err
	}

	if exporter != nil {
		var readerOpts []metric.PeriodicReaderOption
		if cfg.MetricInterval > 0 {
			readerOpts = append(readerOpts, metric.WithInterval(cfg.MetricInterval))
		}
		opts = append(opts, metric.WithReader(metric.NewPeriodicReader(exporter, readerOpts...)))
	}

	return metric.NewMeterProvider(opts...), nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func ratioFromEnv(key string) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 || f > 1 {
		return 0
	}
	return f
}

// intervalFromEnv reads milliseconds, matching the OTel SDK variables.
func intervalFromEnv(key string) time.Duration {
	ms, err := strconv.Atoi(os.Getenv(key))
	if err != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
