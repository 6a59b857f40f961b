package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/inrs-ai/CBOE-VIX/pkg/types"
)

// BodyFormat selects the message body representation
type BodyFormat string

const (
	FormatPlain BodyFormat = "plain"
	FormatHTML  BodyFormat = "html"
)

// ParseBodyFormat parses "plain" or "html"
func ParseBodyFormat(s string) (BodyFormat, error) {
	switch BodyFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPlain:
		return FormatPlain, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("email format must be 'plain' or 'html', got '%s'", s)
	}
}

const indexName = "CBOE Volatility Index (VIX)"

// Message is a rendered report ready to be submitted
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	// HTML is empty for plain-text messages
	HTML string
}

type reportData struct {
	Index     string
	Value     string
	Timestamp string
	TimeLabel string
	Tier      Tier
}

const textBody = `Hello,

This is an automated market data update.

Item: %s
Current Value: %s
Level: %s (%s)
Timestamp: %s (%s)

---
Sent by the CBOE VIX daily report job.
`

var htmlBody = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<body style="font-family:Arial,Helvetica,sans-serif;color:#111827">
  <p>Hello,</p>
  <p>This is an automated market data update.</p>
  <table style="border-collapse:collapse">
    <tr><td style="padding:4px 12px 4px 0">Item</td><td>{{.Index}}</td></tr>
    <tr><td style="padding:4px 12px 4px 0">Current Value</td>
      <td><span style="font-size:20px;font-weight:bold;color:{{.Tier.Color}}">{{.Value}}</span></td></tr>
    <tr><td style="padding:4px 12px 4px 0">Level</td>
      <td><span style="display:inline-block;padding:2px 8px;border-radius:4px;color:#ffffff;background:{{.Tier.Color}}">{{.Tier.Name}}</span> {{.Tier.Summary}}</td></tr>
    <tr><td style="padding:4px 12px 4px 0">Timestamp</td><td>{{.Timestamp}} ({{.TimeLabel}})</td></tr>
  </table>
  <hr>
  <p style="font-size:12px;color:#6b7280">Sent by the CBOE VIX daily report job.</p>
</body>
</html>
`))

// Subject returns the report subject for a timestamp
func Subject(timestamp string) string {
	return "Market Alert: VIX Index Update - " + timestamp
}

// TimeLabel names the time zone of loc for the report body
func TimeLabel(loc *time.Location) string {
	if loc == nil {
		return "UTC"
	}
	switch loc.String() {
	case "Asia/Shanghai", "Asia/Chongqing", "PRC":
		return "Beijing Time"
	case "Local":
		return "Local Time"
	default:
		return loc.String()
	}
}

// Render builds the report message for reading
func Render(reading types.Reading, from, to string, format BodyFormat) (*Message, error) {
	tier := TierFor(reading.Value)
	data := reportData{
		Index:     indexName,
		Value:     fmt.Sprintf("%.2f", reading.Value),
		Timestamp: reading.Timestamp(),
		TimeLabel: TimeLabel(reading.Time.Location()),
		Tier:      tier,
	}

	msg := &Message{
		From:    from,
		To:      to,
		Subject: Subject(data.Timestamp),
		Text: fmt.Sprintf(textBody,
			data.Index, data.Value, tier.Name, tier.Summary, data.Timestamp, data.TimeLabel),
	}

	if format == FormatHTML {
		var buf bytes.Buffer
		if err := htmlBody.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render html body: %w", err)
		}
		msg.HTML = buf.String()
	}

	return msg, nil
}
