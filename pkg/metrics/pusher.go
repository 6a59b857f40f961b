package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gogo/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/inrs-ai/CBOE-VIX/pkg/types"
)

// Config contains configuration for the Prometheus remote_write pusher
type Config struct {
	URL        string
	Username   string
	Password   string
	MetricName string
	Timeout    time.Duration
}

// Pusher writes readings to a Prometheus remote_write endpoint
type Pusher struct {
	url        string
	username   string
	password   string
	metricName string
	client     *http.Client
	logger     *zap.Logger
}

// New creates a new Prometheus pusher with OpenTelemetry instrumentation
func New(cfg Config, logger *zap.Logger) *Pusher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(
			http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return "prometheus.remote_write"
			}),
		),
	}

	return &Pusher{
		url:        cfg.URL,
		username:   cfg.Username,
		password:   cfg.Password,
		metricName: cfg.MetricName,
		client:     httpClient,
		logger:     logger,
	}
}

// Push sends the readings in a single remote_write request. There is no
// retry: a failed push is reported to the caller and the sample is dropped.
func (p *Pusher) Push(ctx context.Context, readings []types.Reading) error {
	ctx, span := otel.Tracer("metrics").Start(ctx, "metrics.Push",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("metrics.total_readings", len(readings))),
	)
	defer span.End()

	if len(readings) == 0 {
		p.logger.Debug("no readings to push")
		span.SetStatus(codes.Ok, "no readings to push")
		return nil
	}

	writeReq := &prompb.WriteRequest{
		Timeseries: BuildTimeSeries(p.metricName, readings),
	}

	if err := p.pushOnce(ctx, writeReq); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "push failed")
		return err
	}

	p.logger.Info("pushed readings to prometheus",
		zap.Int("readings", len(readings)),
		zap.Int("time_series", len(writeReq.Timeseries)),
	)
	span.SetStatus(codes.Ok, "metrics pushed successfully")
	return nil
}

func (p *Pusher) pushOnce(ctx context.Context, writeReq *prompb.WriteRequest) error {
	data, err := proto.Marshal(writeReq)
	if err != nil {
		return fmt.Errorf("failed to marshal protobuf: %w", err)
	}

	compressed := snappy.Encode(nil, data)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.username != "" && p.password != "" {
		req.SetBasicAuth(p.username, p.password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("received non-2xx status code: %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}
