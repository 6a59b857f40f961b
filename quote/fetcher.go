package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/inrs-ai/CBOE-VIX/pkg/telemetry"
)

const (
	// DefaultBaseURL is the Yahoo Finance query host
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	maxBodyBytes = 2 << 20
)

// Fetcher retrieves the latest closing value of an index
type Fetcher struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// New creates a new Fetcher. Every request is bounded by timeout.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// FetchLatest returns the latest close for symbol rounded to 2 decimal
// places. Any failure is logged and reported as ok == false.
func (f *Fetcher) FetchLatest(ctx context.Context, symbol string) (float64, bool) {
	q, err := f.Fetch(ctx, symbol)
	if err != nil {
		telemetry.ErrorWithTrace(ctx, f.logger, "Error fetching data",
			zap.String("symbol", symbol),
			zap.Error(err))
		return 0, false
	}
	return q.Close, true
}

// Fetch requests the most recent one-day price history for symbol and
// returns its last close. There is no retry.
func (f *Fetcher) Fetch(ctx context.Context, symbol string) (*Quote, error) {
	ctx, span := otel.Tracer("quote").Start(ctx, "quote.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("quote.symbol", symbol))

	resp, err := f.fetchChart(ctx, symbol)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chart request failed")
		return nil, err
	}

	lastClose, marketTime, err := resp.LastClose()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty series")
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	q := &Quote{
		Symbol:     symbol,
		Close:      Round2(lastClose),
		MarketTime: marketTime,
	}

	span.SetAttributes(attribute.Float64("quote.close", q.Close))
	span.SetStatus(codes.Ok, "quote fetched")
	telemetry.DebugWithTrace(ctx, f.logger, "Fetched quote",
		zap.String("symbol", symbol),
		zap.Float64("raw_close", lastClose),
		zap.Float64("close", q.Close),
		zap.Time("market_time", marketTime))

	return q, nil
}

func (f *Fetcher) fetchChart(ctx context.Context, symbol string) (*ChartResponse, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", f.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var data ChartResponse
	decodeErr := json.Unmarshal(body, &data)

	// Yahoo reports unknown symbols as 404 with a chart.error body
	if decodeErr == nil && data.Chart.Error != nil {
		return nil, &ProviderError{
			StatusCode:  resp.StatusCode,
			Code:        data.Chart.Error.Code,
			Description: data.Chart.Error.Description,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{StatusCode: resp.StatusCode}
	}
	if decodeErr != nil {
		sample := string(body)
		if len(sample) > 200 {
			sample = sample[:200] + "..."
		}
		f.logger.Debug("Failed to parse JSON", zap.String("sample", sample), zap.Error(decodeErr))
		return nil, fmt.Errorf("failed to parse JSON: %w", decodeErr)
	}

	return &data, nil
}

// Round2 rounds v half away from zero to 2 decimal places
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
