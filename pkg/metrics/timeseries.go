package metrics

import (
	"sort"

	"github.com/prometheus/prometheus/prompb"

	"github.com/inrs-ai/CBOE-VIX/pkg/types"
)

// BuildTimeSeries groups readings by symbol into one series per symbol,
// named metricName and labelled symbol=<symbol>. Samples keep input order.
func BuildTimeSeries(metricName string, readings []types.Reading) []prompb.TimeSeries {
	if len(readings) == 0 {
		return nil
	}

	bySymbol := make(map[string][]prompb.Sample)
	for _, r := range readings {
		bySymbol[r.Symbol] = append(bySymbol[r.Symbol], prompb.Sample{
			Value:     r.Value,
			Timestamp: r.Time.UnixMilli(),
		})
	}

	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	timeSeries := make([]prompb.TimeSeries, 0, len(symbols))
	for _, symbol := range symbols {
		timeSeries = append(timeSeries, prompb.TimeSeries{
			Labels: []prompb.Label{
				{Name: "__name__", Value: metricName},
				{Name: "symbol", Value: symbol},
			},
			Samples: bySymbol[symbol],
		})
	}

	return timeSeries
}
