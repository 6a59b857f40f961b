package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/inrs-ai/CBOE-VIX/notifier"
	pkgconfig "github.com/inrs-ai/CBOE-VIX/pkg/config"
)

// Config holds all configuration parameters for the VIX report job
type Config struct {
	// Quote configuration
	Symbol              string `yaml:"symbol" env:"VIX_SYMBOL" env-default:"^VIX"`
	QuoteURL            string `yaml:"quoteUrl" env:"QUOTE_URL" env-default:"https://query1.finance.yahoo.com"`
	FetchTimeoutSeconds int    `yaml:"fetchTimeoutSeconds" env:"FETCH_TIMEOUT_SECONDS" env-default:"15"`

	// Report configuration
	Timezone    string `yaml:"timezone" env:"REPORT_TIMEZONE" env-default:"Asia/Shanghai"`
	HistoryFile string `yaml:"historyFile" env:"HISTORY_FILE" env-default:"data.json"`
	EmailFormat string `yaml:"emailFormat" env:"EMAIL_FORMAT" env-default:"plain"`

	// Mail configuration. Unset values skip the notify step.
	Mail MailConfig `yaml:"mail"`

	// Scheduler configuration, empty runs once
	Schedule   string `yaml:"schedule" env:"SCHEDULE"`
	StatusPort int    `yaml:"statusPort" env:"STATUS_PORT" env-default:"8080"`

	// Remote write configuration, empty URL disables the push
	Prometheus PrometheusConfig `yaml:"prometheus"`

	// Logging configuration
	Logging pkgconfig.LoggingConfig `yaml:"logging"`

	// OpenTelemetry configuration
	OpenTelemetry pkgconfig.OpenTelemetryConfig `yaml:"opentelemetry"`

	// Profiling configuration
	Profiling pkgconfig.ProfilingConfig `yaml:"profiling"`
}

// MailConfig holds the SMTP relay settings
type MailConfig struct {
	Host           string `yaml:"host" env:"SMTP_HOST"`
	Port           Port   `yaml:"port" env:"SMTP_PORT"`
	Username       string `yaml:"username" env:"SMTP_USER"`
	Password       string `yaml:"password" env:"SMTP_PASS"`
	From           string `yaml:"from" env:"EMAIL_FROM"`
	To             string `yaml:"to" env:"EMAIL_TO"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" env:"SMTP_TIMEOUT_SECONDS" env-default:"30"`
}

// Port is an optional TCP port. An empty or non-numeric value reads as 0,
// which the notifier reports as a missing setting.
type Port int

// SetValue implements cleanenv.Setter
func (p *Port) SetValue(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		*p = 0
		return nil
	}
	*p = Port(n)
	return nil
}

// PrometheusConfig holds the remote write target
type PrometheusConfig struct {
	URL        string `yaml:"url" env:"PROMETHEUS_URL"`
	Username   string `yaml:"username" env:"PROMETHEUS_USERNAME"`
	Password   string `yaml:"password" env:"PROMETHEUS_PASSWORD"`
	MetricName string `yaml:"metricName" env:"METRIC_NAME" env-default:"vix_close"`
}

// Load reads configuration from the environment, a .env file in the
// working directory and, when configPath is not empty, a YAML file.
// Environment variables take precedence over the file.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var cfg Config

	if configPath != "" {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from %s: %w", configPath, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all configuration parameters are valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("symbol cannot be empty")
	}

	if _, err := url.ParseRequestURI(c.QuoteURL); err != nil {
		return fmt.Errorf("invalid quoteUrl: %w", err)
	}

	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("fetchTimeoutSeconds must be positive, got %d", c.FetchTimeoutSeconds)
	}

	if c.Mail.TimeoutSeconds <= 0 {
		return fmt.Errorf("mail timeoutSeconds must be positive, got %d", c.Mail.TimeoutSeconds)
	}

	if c.Mail.Port < 0 || c.Mail.Port > 65535 {
		return fmt.Errorf("mail port must be between 1 and 65535 when set, got %d", c.Mail.Port)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	if strings.TrimSpace(c.HistoryFile) == "" {
		return fmt.Errorf("historyFile cannot be empty")
	}

	if _, err := notifier.ParseBodyFormat(c.EmailFormat); err != nil {
		return err
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
		}
		if c.StatusPort <= 0 || c.StatusPort > 65535 {
			return fmt.Errorf("statusPort must be between 1 and 65535, got %d", c.StatusPort)
		}
	}

	if c.Prometheus.URL != "" {
		if _, err := url.ParseRequestURI(c.Prometheus.URL); err != nil {
			return fmt.Errorf("invalid prometheus url: %w", err)
		}
		if strings.TrimSpace(c.Prometheus.MetricName) == "" {
			return fmt.Errorf("metricName cannot be empty")
		}
	}

	// Validate logging configuration
	if err := pkgconfig.ValidateLogging(&c.Logging); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}

	// Validate OpenTelemetry configuration
	if err := pkgconfig.ValidateOpenTelemetry(&c.OpenTelemetry); err != nil {
		return fmt.Errorf("opentelemetry validation failed: %w", err)
	}

	// Validate Profiling configuration
	if err := pkgconfig.ValidateProfiling(&c.Profiling); err != nil {
		return fmt.Errorf("profiling validation failed: %w", err)
	}

	return nil
}

// Location returns the report time zone, UTC when it cannot be loaded
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BodyFormat returns the configured email body format
func (c *Config) BodyFormat() notifier.BodyFormat {
	format, err := notifier.ParseBodyFormat(c.EmailFormat)
	if err != nil {
		return notifier.FormatPlain
	}
	return format
}

// MailSettings returns the relay settings used by the notifier
func (c *Config) MailSettings() notifier.Settings {
	return notifier.Settings{
		Host:     c.Mail.Host,
		Port:     int(c.Mail.Port),
		Username: c.Mail.Username,
		Password: c.Mail.Password,
		From:     c.Mail.From,
		To:       c.Mail.To,
	}
}

// FetchTimeout returns the market data request timeout
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// MailTimeout returns the SMTP dial and command timeout
func (c *Config) MailTimeout() time.Duration {
	return time.Duration(c.Mail.TimeoutSeconds) * time.Second
}

// Redacted returns a copy of the config with sensitive fields redacted for logging
func (c *Config) Redacted() map[string]interface{} {
	return map[string]interface{}{
		"symbol":              c.Symbol,
		"quoteUrl":            c.QuoteURL,
		"fetchTimeoutSeconds": c.FetchTimeoutSeconds,
		"timezone":            c.Timezone,
		"historyFile":         c.HistoryFile,
		"emailFormat":         c.EmailFormat,
		"mail": map[string]interface{}{
			"host":           c.Mail.Host,
			"port":           c.Mail.Port,
			"username":       c.Mail.Username,
			"password":       redactSecret(c.Mail.Password),
			"from":           c.Mail.From,
			"to":             c.Mail.To,
			"timeoutSeconds": c.Mail.TimeoutSeconds,
		},
		"schedule":   c.Schedule,
		"statusPort": c.StatusPort,
		"prometheus": map[string]interface{}{
			"url":        redactURL(c.Prometheus.URL),
			"username":   c.Prometheus.Username,
			"password":   redactSecret(c.Prometheus.Password),
			"metricName": c.Prometheus.MetricName,
		},
		"logging": map[string]interface{}{
			"logFormat": c.Logging.Format,
			"logLevel":  c.Logging.Level,
		},
		"opentelemetry": map[string]interface{}{
			"enabled":        c.OpenTelemetry.Enabled,
			"serviceName":    c.OpenTelemetry.ServiceName,
			"serviceVersion": c.OpenTelemetry.ServiceVersion,
			"environment":    c.OpenTelemetry.Environment,
			"traces": map[string]interface{}{
				"enabled":       c.OpenTelemetry.Traces.Enabled,
				"endpointSet":   c.OpenTelemetry.TracesEndpoint() != "",
				"samplingRatio": c.OpenTelemetry.Traces.SamplingRatio,
			},
			"metrics": map[string]interface{}{
				"enabled":              c.OpenTelemetry.Metrics.Enabled,
				"endpointSet":          c.OpenTelemetry.MetricsEndpoint() != "",
				"intervalMillis":       c.OpenTelemetry.Metrics.IntervalMillis,
				"enableRuntimeMetrics": c.OpenTelemetry.Metrics.EnableRuntimeMetrics,
			},
		},
		"profiling": map[string]interface{}{
			"enabled":       c.Profiling.Enabled,
			"serverAddress": c.Profiling.ServerAddress,
		},
	}
}

// NewLogger creates a zap logger based on the configuration
func (c *Config) NewLogger() (*zap.Logger, error) {
	return pkgconfig.NewLogger(&c.Logging)
}

func redactSecret(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

// redactURL removes credentials from URLs for logging
func redactURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword("***", "***")
	}
	return u.String()
}
