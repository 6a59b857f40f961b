package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/inrs-ai/CBOE-VIX/config"
	"github.com/inrs-ai/CBOE-VIX/history"
	"github.com/inrs-ai/CBOE-VIX/job"
	"github.com/inrs-ai/CBOE-VIX/notifier"
	pkgmetrics "github.com/inrs-ai/CBOE-VIX/pkg/metrics"
	"github.com/inrs-ai/CBOE-VIX/pkg/profiling"
	"github.com/inrs-ai/CBOE-VIX/pkg/telemetry"
	"github.com/inrs-ai/CBOE-VIX/quote"
)

// Process exit codes
const (
	exitOK           = 0
	exitFetchFailed  = 1
	exitConfig       = 2
	exitRecordFailed = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command-line flags
	configPath := flag.String("c", "", "Path to an optional YAML configuration file")
	schedule := flag.String("schedule", "", "Cron spec to run on instead of running once (overrides SCHEDULE)")
	dryRun := flag.Bool("dry-run", false, "Fetch and render the report without sending email or writing history")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return exitConfig
	}
	if *schedule != "" {
		cfg.Schedule = *schedule
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid schedule: %v\n", err)
			return exitConfig
		}
	}

	// Initialize logger
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return exitConfig
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("path", *configPath),
		zap.Bool("dryRun", *dryRun),
		zap.Any("config", cfg.Redacted()))

	// Initialize Pyroscope profiling
	profiler, err := profiling.Start(&cfg.Profiling, logger)
	if err != nil {
		logger.Error("Failed to initialize profiler", zap.Error(err))
		return exitConfig
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			logger.Error("Error shutting down profiler", zap.Error(err))
		}
	}()

	// Initialize OpenTelemetry providers
	ctx := context.Background()
	otelProviders, err := telemetry.InitProviders(ctx, &cfg.OpenTelemetry, logger)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry providers", zap.Error(err))
		return exitConfig
	}
	if otelProviders != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelProviders.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error shutting down OpenTelemetry providers", zap.Error(err))
			}
		}()
	}

	vix := newJob(cfg, *dryRun, logger)

	if cfg.Schedule != "" {
		if err := runScheduled(cfg, vix, logger); err != nil {
			logger.Error("Scheduler failed", zap.Error(err))
			return exitConfig
		}
		return exitOK
	}

	_, err = vix.Run(ctx)
	return exitCode(err)
}

// newJob wires the fetcher, notifier, recorder and optional pusher
func newJob(cfg *config.Config, dryRun bool, logger *zap.Logger) *job.Job {
	fetcher := quote.New(cfg.QuoteURL, cfg.FetchTimeout(), logger)

	var sender notifier.Sender = notifier.NewSMTPSender(cfg.MailTimeout(), logger)
	if dryRun {
		sender = notifier.NewLogSender(logger)
	}
	n := notifier.New(cfg.MailSettings(), sender, cfg.BodyFormat(), logger)

	recorder := history.New(cfg.HistoryFile, logger)

	var opts []job.Option
	if dryRun {
		opts = append(opts, job.WithoutHistory())
	} else if cfg.Prometheus.URL != "" {
		opts = append(opts, job.WithPusher(pkgmetrics.New(pkgmetrics.Config{
			URL:        cfg.Prometheus.URL,
			Username:   cfg.Prometheus.Username,
			Password:   cfg.Prometheus.Password,
			MetricName: cfg.Prometheus.MetricName,
			Timeout:    cfg.FetchTimeout(),
		}, logger)))
	}

	return job.New(cfg.Symbol, cfg.Location(), fetcher, n, recorder, logger, opts...)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, job.ErrFetchFailed):
		return exitFetchFailed
	case errors.Is(err, job.ErrRecordFailed):
		return exitRecordFailed
	default:
		return exitConfig
	}
}
