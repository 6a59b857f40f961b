package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/inrs-ai/CBOE-VIX/pkg/telemetry"
	"github.com/inrs-ai/CBOE-VIX/pkg/types"
)

// Settings are the mail relay and address values. All six are required
// for a message to be sent.
type Settings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Missing returns the environment names of the unset values
func (s Settings) Missing() []string {
	var missing []string
	check := func(name string, set bool) {
		if !set {
			missing = append(missing, name)
		}
	}
	check("SMTP_HOST", strings.TrimSpace(s.Host) != "")
	check("SMTP_PORT", s.Port != 0)
	check("SMTP_USER", s.Username != "")
	check("SMTP_PASS", s.Password != "")
	check("EMAIL_FROM", strings.TrimSpace(s.From) != "")
	check("EMAIL_TO", strings.TrimSpace(s.To) != "")
	return missing
}

// Delivery stages reported by DeliveryError
const (
	StageMessage = "message"
	StageDial    = "dial"
	StageSend    = "send"
)

// ConfigError reports that the notify step was skipped for lack of settings
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing SMTP environment variables: " + strings.Join(e.Missing, ", ")
}

// DeliveryError is any failure while building, connecting, authenticating
// or transmitting a message
type DeliveryError struct {
	Stage string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mail %s failed: %v", e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Outcome of a notify attempt
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result is returned by Notify instead of an error. Err holds a
// *ConfigError when skipped and a *DeliveryError when failed.
type Result struct {
	Outcome Outcome
	Tier    Tier
	Err     error
}

// OK reports whether the message was delivered to the relay
func (r Result) OK() bool {
	return r.Outcome == OutcomeSent
}

// Notifier formats a reading and submits it to the mail relay
type Notifier struct {
	settings Settings
	sender   Sender
	format   BodyFormat
	logger   *zap.Logger
}

// New creates a Notifier
func New(settings Settings, sender Sender, format BodyFormat, logger *zap.Logger) *Notifier {
	return &Notifier{
		settings: settings,
		sender:   sender,
		format:   format,
		logger:   logger,
	}
}

// Notify emails the reading. It never returns an error: failures are
// logged and described by the Result.
func (n *Notifier) Notify(ctx context.Context, reading types.Reading) Result {
	ctx, span := otel.Tracer("notifier").Start(ctx, "notifier.Notify")
	defer span.End()

	tier := TierFor(reading.Value)
	span.SetAttributes(attribute.String("notifier.tier", tier.Name))

	if missing := n.settings.Missing(); len(missing) > 0 {
		err := &ConfigError{Missing: missing}
		telemetry.WarnWithTrace(ctx, n.logger, "Missing SMTP environment variables, skipping email",
			zap.Strings("missing", missing))
		span.SetAttributes(attribute.String("notifier.outcome", string(OutcomeSkipped)))
		return Result{Outcome: OutcomeSkipped, Tier: tier, Err: err}
	}

	msg, err := Render(reading, n.settings.From, n.settings.To, n.format)
	if err != nil {
		return n.failed(ctx, span, tier, &DeliveryError{Stage: StageMessage, Err: err})
	}

	if err := n.sender.Send(ctx, n.settings, msg); err != nil {
		return n.failed(ctx, span, tier, asDeliveryError(err))
	}

	span.SetAttributes(attribute.String("notifier.outcome", string(OutcomeSent)))
	span.SetStatus(codes.Ok, "email sent")
	telemetry.InfoWithTrace(ctx, n.logger, "Email sent successfully",
		zap.String("to", n.settings.To),
		zap.String("subject", msg.Subject),
		zap.String("tier", tier.Name))

	return Result{Outcome: OutcomeSent, Tier: tier}
}

func (n *Notifier) failed(ctx context.Context, span trace.Span, tier Tier, err *DeliveryError) Result {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Stage)
	span.SetAttributes(attribute.String("notifier.outcome", string(OutcomeFailed)))
	telemetry.ErrorWithTrace(ctx, n.logger, "Error sending email",
		zap.String("stage", err.Stage),
		zap.Error(err.Err))
	return Result{Outcome: OutcomeFailed, Tier: tier, Err: err}
}

func asDeliveryError(err error) *DeliveryError {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de
	}
	return &DeliveryError{Stage: StageSend, Err: err}
}
