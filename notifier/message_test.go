package notifier

import (
	"strings"
	"testing"
	"time"

	"github.com/inrs-ai/CBOE-VIX/pkg/types"
)

func shanghaiReading(t *testing.T, value float64) types.Reading {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	return types.NewReading("^VIX", value, time.Date(2024, 8, 5, 14, 0, 0, 0, time.UTC), loc)
}

func TestRender_Plain(t *testing.T) {
	reading := shanghaiReading(t, 38.57)

	msg, err := Render(reading, "bot@example.com", "me@example.com", FormatPlain)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if msg.Subject != "Market Alert: VIX Index Update - 2024-08-05 22:00:00" {
		t.Errorf("Unexpected subject: %s", msg.Subject)
	}
	if msg.From != "bot@example.com" || msg.To != "me@example.com" {
		t.Errorf("Unexpected addresses: %s -> %s", msg.From, msg.To)
	}
	if msg.HTML != "" {
		t.Error("Expected no HTML body for plain format")
	}

	for _, want := range []string{
		"Item: CBOE Volatility Index (VIX)",
		"Current Value: 38.57",
		"Level: alert",
		"Timestamp: 2024-08-05 22:00:00 (Beijing Time)",
	} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("Expected text body to contain %q, got:\n%s", want, msg.Text)
		}
	}
}

func TestRender_HTML(t *testing.T) {
	tests := []struct {
		value float64
		color string
	}{
		{14.2, "#16a34a"},
		{20, "#ca8a04"},
		{30, "#dc2626"},
	}

	for _, tt := range tests {
		msg, err := Render(shanghaiReading(t, tt.value), "a@example.com", "b@example.com", FormatHTML)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if msg.Text == "" {
			t.Error("Expected plain text alternative alongside HTML")
		}
		if !strings.Contains(msg.HTML, tt.color) {
			t.Errorf("Expected HTML for %v to use color %s", tt.value, tt.color)
		}
		if !strings.Contains(msg.HTML, "Beijing Time") {
			t.Error("Expected HTML to contain the time label")
		}
	}
}

func TestRender_TwoDecimals(t *testing.T) {
	msg, err := Render(shanghaiReading(t, 20), "a@example.com", "b@example.com", FormatPlain)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(msg.Text, "Current Value: 20.00") {
		t.Errorf("Expected value rendered with 2 decimals, got:\n%s", msg.Text)
	}
}

func TestTimeLabel(t *testing.T) {
	if got := TimeLabel(time.UTC); got != "UTC" {
		t.Errorf("Expected UTC, got %s", got)
	}
	if got := TimeLabel(nil); got != "UTC" {
		t.Errorf("Expected UTC for nil location, got %s", got)
	}
	if ny, err := time.LoadLocation("America/New_York"); err == nil {
		if got := TimeLabel(ny); got != "America/New_York" {
			t.Errorf("Expected America/New_York, got %s", got)
		}
	}
}

func TestParseBodyFormat(t *testing.T) {
	if f, err := ParseBodyFormat(" HTML "); err != nil || f != FormatHTML {
		t.Errorf("Expected html, got %q (%v)", f, err)
	}
	if f, err := ParseBodyFormat("plain"); err != nil || f != FormatPlain {
		t.Errorf("Expected plain, got %q (%v)", f, err)
	}
	if _, err := ParseBodyFormat("markdown"); err == nil {
		t.Error("Expected error for unknown format")
	}
}
