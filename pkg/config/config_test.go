package config

import (
	"strings"
	"testing"
)

func TestValidateLogging(t *testing.T) {
	tests := []struct {
		name        string
		cfg         LoggingConfig
		expectedErr string
	}{
		{name: "console info", cfg: LoggingConfig{Format: "console", Level: "info"}},
		{name: "uppercase normalised", cfg: LoggingConfig{Format: "JSON", Level: "DEBUG"}},
		{name: "logfmt", cfg: LoggingConfig{Format: "logfmt", Level: "warn"}},
		{name: "bad format", cfg: LoggingConfig{Format: "xml", Level: "info"}, expectedErr: "logFormat must be"},
		{name: "bad level", cfg: LoggingConfig{Format: "json", Level: "trace"}, expectedErr: "logLevel must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLogging(&tt.cfg)
			if tt.expectedErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				if tt.cfg.Format != strings.ToLower(tt.cfg.Format) {
					t.Errorf("Expected format to be lowercased, got %s", tt.cfg.Format)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.expectedErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.expectedErr, err)
			}
		})
	}
}

func TestNewLogger_AllFormats(t *testing.T) {
	for _, format := range []string{"console", "json", "logfmt"} {
		t.Run(format, func(t *testing.T) {
			logger, err := NewLogger(&LoggingConfig{Format: format, Level: "debug"})
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if logger == nil {
				t.Fatal("Expected logger, got nil")
			}
		})
	}
}

func TestValidateOpenTelemetry(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	disabled := OpenTelemetryConfig{Enabled: false}
	if err := ValidateOpenTelemetry(&disabled); err != nil {
		t.Errorf("Expected disabled config to pass, got: %v", err)
	}

	missingEndpoint := OpenTelemetryConfig{
		Enabled:     true,
		ServiceName: "cboe-vix",
		Traces:      OTelTracesConfig{Enabled: true, SamplingRatio: 1},
	}
	if err := ValidateOpenTelemetry(&missingEndpoint); err == nil {
		t.Error("Expected error for missing traces endpoint")
	}

	ok := OpenTelemetryConfig{
		Enabled:     true,
		ServiceName: "cboe-vix",
		Endpoint:    "localhost:4318",
		Traces:      OTelTracesConfig{Enabled: true, SamplingRatio: 0.5},
		Metrics:     OTelMetricsConfig{Enabled: true, IntervalMillis: 5000},
	}
	if err := ValidateOpenTelemetry(&ok); err != nil {
		t.Errorf("Expected valid config, got: %v", err)
	}
	if ok.TracesEndpoint() != "localhost:4318" || ok.MetricsEndpoint() != "localhost:4318" {
		t.Errorf("Expected shared endpoint fallback, got %s / %s", ok.TracesEndpoint(), ok.MetricsEndpoint())
	}

	badRatio := ok
	badRatio.Traces.SamplingRatio = 1.5
	if err := ValidateOpenTelemetry(&badRatio); err == nil {
		t.Error("Expected error for sampling ratio > 1")
	}
}

func TestValidateProfiling(t *testing.T) {
	if err := ValidateProfiling(&ProfilingConfig{}); err != nil {
		t.Errorf("Expected disabled profiling to pass, got: %v", err)
	}

	cfg := ProfilingConfig{Enabled: true, ApplicationName: "cboe-vix"}
	if err := ValidateProfiling(&cfg); err == nil {
		t.Error("Expected error for missing server address")
	}

	cfg.ServerAddress = "http://pyroscope:4040"
	if err := ValidateProfiling(&cfg); err == nil {
		t.Error("Expected error when no profile type is enabled")
	}

	cfg.CPUProfile = true
	if err := ValidateProfiling(&cfg); err != nil {
		t.Errorf("Expected valid config, got: %v", err)
	}
}
