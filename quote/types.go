package quote

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoData is returned when the provider answers with an empty price series
var ErrNoData = errors.New("no price data returned")

// ProviderError is a failure reported by the market data provider itself
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// ChartResponse is the subset of the Yahoo Finance v8 chart payload we read
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// ChartResult holds one symbol's series. Close entries are null for
// intervals without a trade.
type ChartResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamps []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Quote is the latest close extracted from a chart response
type Quote struct {
	Symbol string
	// Close is rounded to 2 decimal places
	Close float64
	// MarketTime is the bar time reported by the provider, zero if absent
	MarketTime time.Time
}

// LastClose returns the last non-null close of the series and its bar time
func (r *ChartResponse) LastClose() (float64, time.Time, error) {
	if len(r.Chart.Result) == 0 || len(r.Chart.Result[0].Indicators.Quote) == 0 {
		return 0, time.Time{}, ErrNoData
	}

	result := r.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] == nil {
			continue
		}
		var at time.Time
		if i < len(result.Timestamps) {
			at = time.Unix(result.Timestamps[i], 0)
		}
		return *closes[i], at, nil
	}

	return 0, time.Time{}, ErrNoData
}
