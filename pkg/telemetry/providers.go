package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.uber.org/zap"

	"github.com/inrs-ai/CBOE-VIX/pkg/config"
)

// Providers holds the initialized OpenTelemetry providers
type Providers struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	logger         *zap.Logger
}

// InitProviders initializes OpenTelemetry tracer and meter providers.
// It returns nil providers when OpenTelemetry is disabled; the global
// no-op providers then stay in place.
func InitProviders(ctx context.Context, otelCfg *config.OpenTelemetryConfig, logger *zap.Logger) (*Providers, error) {
	if !otelCfg.Enabled {
		logger.Debug("OpenTelemetry is disabled")
		return nil, nil
	}

	res := newResource(otelCfg)
	providers := &Providers{logger: logger}

	if otelCfg.Traces.Enabled {
		tp, err := newTracerProvider(ctx, otelCfg, res)
		if err != nil {
			return nil, fmt.Errorf("failed to create tracer provider: %w", err)
		}
		providers.TracerProvider = tp
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

		logger.Info("tracer provider initialized",
			zap.String("endpoint", otelCfg.TracesEndpoint()),
			zap.Float64("sampling_ratio", otelCfg.Traces.SamplingRatio),
		)
	}

	if otelCfg.Metrics.Enabled {
		mp, err := newMeterProvider(ctx, otelCfg, res)
		if err != nil {
			if providers.TracerProvider != nil {
				_ = providers.TracerProvider.Shutdown(ctx)
			}
			return nil, fmt.Errorf("failed to create meter provider: %w", err)
		}
		providers.MeterProvider = mp
		otel.SetMeterProvider(mp)

		logger.Info("meter provider initialized",
			zap.String("endpoint", otelCfg.MetricsEndpoint()),
			zap.Int("interval_ms", otelCfg.Metrics.IntervalMillis),
		)

		if otelCfg.Metrics.EnableRuntimeMetrics {
			if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
				logger.Warn("failed to start runtime metrics collection", zap.Error(err))
			}
		}
	}

	return providers, nil
}

// Shutdown flushes pending spans and metrics and stops the providers.
// A short-lived run must call this before exiting or its spans are lost.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.logger.Debug("OpenTelemetry providers shutdown complete")
	return nil
}

func newResource(otelCfg *config.OpenTelemetryConfig) *resource.Resource {
	attributes := []attribute.KeyValue{
		semconv.ServiceNameKey.String(otelCfg.ServiceName),
		semconv.ServiceVersionKey.String(otelCfg.ServiceVersion),
		attribute.String("deployment.environment", otelCfg.Environment),
	}
	for key, value := range otelCfg.ResourceAttributes {
		attributes = append(attributes, attribute.String(key, value))
	}
	if hostname, err := os.Hostname(); err == nil {
		attributes = append(attributes, semconv.HostNameKey.String(hostname))
	}

	return resource.NewWithAttributes(semconv.SchemaURL, attributes...)
}

func newTracerProvider(ctx context.Context, otelCfg *config.OpenTelemetryConfig, res *resource.Resource) (*trace.TracerProvider, error) {
	endpoint := otelCfg.TracesEndpoint()
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if isLocalEndpoint(endpoint) {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if headers := mergeHeaders(otelCfg.Headers, otelCfg.Traces.Headers, "OTEL_EXPORTER_OTLP_TRACES_HEADERS"); len(headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(headers))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithSampler(trace.TraceIDRatioBased(otelCfg.Traces.SamplingRatio)),
		trace.WithResource(res),
		trace.WithBatcher(exporter),
	), nil
}

func newMeterProvider(ctx context.Context, otelCfg *config.OpenTelemetryConfig, res *resource.Resource) (*metric.MeterProvider, error) {
	endpoint := otelCfg.MetricsEndpoint()
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if isLocalEndpoint(endpoint) {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if headers := mergeHeaders(otelCfg.Headers, otelCfg.Metrics.Headers, "OTEL_EXPORTER_OTLP_METRICS_HEADERS"); len(headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(headers))
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	reader := metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(time.Duration(otelCfg.Metrics.IntervalMillis)*time.Millisecond),
	)

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(reader),
	), nil
}

func isLocalEndpoint(endpoint string) bool {
	return strings.HasPrefix(endpoint, "localhost:") || strings.HasPrefix(endpoint, "127.0.0.1:")
}

// mergeHeaders picks signal-specific headers, then shared ones, then the
// signal env var, then OTEL_EXPORTER_OTLP_HEADERS.
func mergeHeaders(shared, specific map[string]string, envKey string) map[string]string {
	if len(specific) > 0 {
		return specific
	}
	if len(shared) > 0 {
		return shared
	}
	if v := os.Getenv(envKey); v != "" {
		return ParseHeaders(v)
	}
	return ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
}

// ParseHeaders parses "key1=value1,key2=value2" into a map
func ParseHeaders(s string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" {
			continue
		}
		headers[key] = value
	}
	return headers
}
