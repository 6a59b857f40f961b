package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/inrs-ai/CBOE-VIX/config"
	"github.com/inrs-ai/CBOE-VIX/job"
	"github.com/inrs-ai/CBOE-VIX/metrics"
)

// runScheduled runs the job on cfg.Schedule until SIGINT or SIGTERM
func runScheduled(cfg *config.Config, vix *job.Job, logger *zap.Logger) error {
	sched, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	status := metrics.NewStatusServer(cfg.StatusPort, staleAfter(sched, time.Now().In(cfg.Location())), logger)
	go func() {
		if err := status.Start(); err != nil {
			logger.Error("Status server error", zap.Error(err))
		}
	}()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cl := cronLogger{logger: logger.Named("cron")}
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(sched, cron.FuncJob(func() {
		report, err := vix.Run(appCtx)
		status.Observe(report, err)
		if err != nil {
			logger.Error("Run failed", zap.Error(err), zap.Int("exitCode", exitCode(err)))
		}
	}))
	c.Start()

	next := sched.Next(time.Now().In(cfg.Location()))
	logger.Info("Scheduler started",
		zap.String("schedule", cfg.Schedule),
		zap.String("timezone", cfg.Location().String()),
		zap.Time("nextRun", next))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	cancel()
	// Wait for a run in progress
	<-c.Stop().Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := status.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping status server", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}

// staleAfter is twice the gap between the next two activations of sched
func staleAfter(sched cron.Schedule, now time.Time) time.Duration {
	first := sched.Next(now)
	second := sched.Next(first)
	if first.IsZero() || second.IsZero() {
		return 0
	}
	return 2 * second.Sub(first)
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
