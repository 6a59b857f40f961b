package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/inrs-ai/CBOE-VIX/history"
	"github.com/inrs-ai/CBOE-VIX/notifier"
	"github.com/inrs-ai/CBOE-VIX/pkg/telemetry"
	"github.com/inrs-ai/CBOE-VIX/pkg/types"
)

var (
	// ErrFetchFailed ends a run before anything is sent or written
	ErrFetchFailed = errors.New("failed to fetch market data")
	// ErrRecordFailed means the reading could not be persisted
	ErrRecordFailed = errors.New("failed to record history")
)

// Fetcher returns the latest close of a symbol
type Fetcher interface {
	FetchLatest(ctx context.Context, symbol string) (float64, bool)
}

// Notifier delivers a reading and describes the outcome
type Notifier interface {
	Notify(ctx context.Context, reading types.Reading) notifier.Result
}

// Recorder persists a reading
type Recorder interface {
	Record(ctx context.Context, reading types.Reading) ([]history.Entry, error)
}

// Pusher exports readings to a metrics backend
type Pusher interface {
	Push(ctx context.Context, readings []types.Reading) error
}

// Report describes a single run
type Report struct {
	Started  time.Time
	Duration time.Duration
	// Reading is only set when the fetch succeeded
	Reading *types.Reading
	Notify  notifier.Result
	History []history.Entry
	Pushed  bool
}

// Job fetches the index, emails it and records it
type Job struct {
	symbol   string
	location *time.Location
	fetcher  Fetcher
	notifier Notifier
	recorder Recorder
	pusher   Pusher
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Job
type Option func(*Job)

// WithPusher exports every recorded reading through p
func WithPusher(p Pusher) Option {
	return func(j *Job) { j.pusher = p }
}

// WithoutHistory skips the record step
func WithoutHistory() Option {
	return func(j *Job) { j.recorder = nil }
}

// WithClock overrides the time source used to stamp readings
func WithClock(now func() time.Time) Option {
	return func(j *Job) { j.now = now }
}

// New creates a Job for symbol. Readings are stamped in loc.
func New(symbol string, loc *time.Location, fetcher Fetcher, n Notifier, recorder Recorder, logger *zap.Logger, opts ...Option) *Job {
	j := &Job{
		symbol:   symbol,
		location: loc,
		fetcher:  fetcher,
		notifier: n,
		recorder: recorder,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run performs fetch, notify, record and the optional push, in that
// order. A failed fetch returns ErrFetchFailed and stops the run. A failed
// notification is reported in Report.Notify and does not stop the run.
func (j *Job) Run(ctx context.Context) (Report, error) {
	ctx, span := otel.Tracer("job").Start(ctx, "vix.run")
	defer span.End()
	span.SetAttributes(attribute.String("vix.symbol", j.symbol))

	report := Report{Started: j.now()}

	telemetry.InfoWithTrace(ctx, j.logger, "Fetching VIX data", zap.String("symbol", j.symbol))

	value, ok := j.fetcher.FetchLatest(ctx, j.symbol)
	if !ok {
		span.SetStatus(codes.Error, ErrFetchFailed.Error())
		report.Duration = time.Since(report.Started)
		return report, ErrFetchFailed
	}

	reading := types.NewReading(j.symbol, value, j.now(), j.location)
	report.Reading = &reading
	span.SetAttributes(attribute.Float64("vix.value", value))
	telemetry.InfoWithTrace(ctx, j.logger, "Current VIX",
		zap.Float64("value", reading.Value),
		zap.String("timestamp", reading.Timestamp()))

	report.Notify = j.notifier.Notify(ctx, reading)
	span.SetAttributes(attribute.String("vix.notify", string(report.Notify.Outcome)))

	if j.recorder != nil {
		entries, err := j.recorder.Record(ctx, reading)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, ErrRecordFailed.Error())
			telemetry.ErrorWithTrace(ctx, j.logger, "Error recording data", zap.Error(err))
			report.Duration = time.Since(report.Started)
			return report, fmt.Errorf("%w: %w", ErrRecordFailed, err)
		}
		report.History = entries
	}

	if j.pusher != nil {
		if err := j.pusher.Push(ctx, []types.Reading{reading}); err != nil {
			telemetry.WarnWithTrace(ctx, j.logger, "Failed to push reading to Prometheus", zap.Error(err))
		} else {
			report.Pushed = true
		}
	}

	span.SetStatus(codes.Ok, "run complete")
	report.Duration = time.Since(report.Started)
	return report, nil
}
