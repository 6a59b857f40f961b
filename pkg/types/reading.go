package types

import "time"

// TimestampLayout is the local date-time format used in reports and history
const TimestampLayout = "2006-01-02 15:04:05"

// Reading is a single closing value of a market index, taken at Time.
// Time carries the report location, so Timestamp renders local wall time.
type Reading struct {
	Symbol string
	Value  float64
	Time   time.Time
}

// NewReading creates a reading with the time converted into loc
func NewReading(symbol string, value float64, at time.Time, loc *time.Location) Reading {
	if loc != nil {
		at = at.In(loc)
	}
	return Reading{
		Symbol: symbol,
		Value:  value,
		Time:   at,
	}
}

// Timestamp returns the reading time formatted as YYYY-MM-DD HH:MM:SS
func (r Reading) Timestamp() string {
	return r.Time.Format(TimestampLayout)
}
