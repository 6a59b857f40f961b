package config

import (
	"fmt"
	"os"
)

// OpenTelemetryConfig contains OpenTelemetry configuration
type OpenTelemetryConfig struct {
	Enabled            bool              `yaml:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	ServiceName        string            `yaml:"serviceName" env:"OTEL_SERVICE_NAME" env-default:"cboe-vix"`
	ServiceVersion     string            `yaml:"serviceVersion" env:"OTEL_SERVICE_VERSION" env-default:"1.0.0"`
	Environment        string            `yaml:"environment" env:"OTEL_ENVIRONMENT" env-default:"production"`
	Endpoint           string            `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers            map[string]string `yaml:"headers"`
	Traces             OTelTracesConfig  `yaml:"traces"`
	Metrics            OTelMetricsConfig `yaml:"metrics"`
	ResourceAttributes map[string]string `yaml:"resourceAttributes"`
}

// OTelTracesConfig contains OpenTelemetry traces configuration
type OTelTracesConfig struct {
	Enabled       bool              `yaml:"enabled" env:"OTEL_TRACES_ENABLED" env-default:"true"`
	Endpoint      string            `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	Headers       map[string]string `yaml:"headers"`
	SamplingRatio float64           `yaml:"samplingRatio" env:"OTEL_TRACES_SAMPLING_RATIO" env-default:"1.0"`
}

// OTelMetricsConfig contains OpenTelemetry metrics configuration
type OTelMetricsConfig struct {
	Enabled              bool              `yaml:"enabled" env:"OTEL_METRICS_ENABLED" env-default:"true"`
	Endpoint             string            `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"`
	Headers              map[string]string `yaml:"headers"`
	IntervalMillis       int               `yaml:"intervalMillis" env:"OTEL_METRICS_INTERVAL" env-default:"30000"`
	EnableRuntimeMetrics bool              `yaml:"enableRuntimeMetrics" env:"OTEL_ENABLE_RUNTIME_METRICS" env-default:"false"`
}

// TracesEndpoint returns the traces endpoint, falling back to the shared one
func (c *OpenTelemetryConfig) TracesEndpoint() string {
	if c.Traces.Endpoint != "" {
		return c.Traces.Endpoint
	}
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
}

// MetricsEndpoint returns the metrics endpoint, falling back to the shared one
func (c *OpenTelemetryConfig) MetricsEndpoint() string {
	if c.Metrics.Endpoint != "" {
		return c.Metrics.Endpoint
	}
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
}

// ValidateOpenTelemetry validates OpenTelemetry configuration if enabled
func ValidateOpenTelemetry(cfg *OpenTelemetryConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.ServiceName == "" {
		return fmt.Errorf("opentelemetry service name is required when OpenTelemetry is enabled")
	}

	if cfg.Traces.Enabled {
		if cfg.TracesEndpoint() == "" {
			return fmt.Errorf("opentelemetry traces endpoint is required when traces are enabled")
		}
		if cfg.Traces.SamplingRatio < 0 || cfg.Traces.SamplingRatio > 1 {
			return fmt.Errorf("opentelemetry traces sampling ratio must be between 0 and 1, got: %f", cfg.Traces.SamplingRatio)
		}
	}

	if cfg.Metrics.Enabled {
		if cfg.MetricsEndpoint() == "" {
			return fmt.Errorf("opentelemetry metrics endpoint is required when metrics are enabled")
		}
		if cfg.Metrics.IntervalMillis < 1000 {
			return fmt.Errorf("opentelemetry metrics interval must be at least 1000ms (1 second)")
		}
	}

	return nil
}
