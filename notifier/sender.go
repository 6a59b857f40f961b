package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Transport is how the connection to the mail relay is secured
type Transport int

const (
	// ImplicitTLS negotiates TLS as soon as the connection is open
	ImplicitTLS Transport = iota
	// StartTLS connects in plain text and upgrades before authenticating
	StartTLS
)

// ImplicitTLSPort is the SMTP submissions port
const ImplicitTLSPort = 465

func (t Transport) String() string {
	if t == ImplicitTLS {
		return "implicit-tls"
	}
	return "starttls"
}

// TransportFor picks implicit TLS on port 465 and STARTTLS everywhere else
func TransportFor(port int) Transport {
	if port == ImplicitTLSPort {
		return ImplicitTLS
	}
	return StartTLS
}

// Sender submits a rendered message to the relay described by settings
type Sender interface {
	Send(ctx context.Context, settings Settings, msg *Message) error
}

// SMTPSender delivers messages over SMTP with PLAIN authentication
type SMTPSender struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewSMTPSender creates an SMTPSender; timeout bounds dial and each command
func NewSMTPSender(timeout time.Duration, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{timeout: timeout, logger: logger}
}

// Send opens a connection, authenticates, submits msg to its single
// recipient and closes the connection
func (s *SMTPSender) Send(ctx context.Context, settings Settings, msg *Message) error {
	return s.send(ctx, settings, TransportFor(settings.Port), msg)
}

func (s *SMTPSender) send(ctx context.Context, settings Settings, transport Transport, msg *Message) error {
	m, err := buildMsg(msg)
	if err != nil {
		return &DeliveryError{Stage: StageMessage, Err: err}
	}

	client, err := mail.NewClient(settings.Host, clientOptions(settings, transport, s.timeout)...)
	if err != nil {
		return &DeliveryError{Stage: StageDial, Err: err}
	}

	s.logger.Debug("connecting to mail relay",
		zap.String("host", settings.Host),
		zap.Int("port", settings.Port),
		zap.Stringer("transport", transport))

	if err := client.DialWithContext(ctx); err != nil {
		return &DeliveryError{Stage: StageDial, Err: err}
	}

	if err := client.Send(m); err != nil {
		_ = client.Close()
		return &DeliveryError{Stage: StageSend, Err: err}
	}

	if err := client.Close(); err != nil {
		// The message was accepted; a failed QUIT is not a delivery failure
		s.logger.Debug("failed to close mail relay connection", zap.Error(err))
	}

	return nil
}

func clientOptions(settings Settings, transport Transport, timeout time.Duration) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(settings.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(settings.Username),
		mail.WithPassword(settings.Password),
	}
	if timeout > 0 {
		opts = append(opts, mail.WithTimeout(timeout))
	}

	switch transport {
	case ImplicitTLS:
		opts = append(opts, mail.WithSSL())
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	return opts
}

func buildMsg(msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()

	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	return m, nil
}

// LogSender logs messages instead of sending them
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs msg and never fails
func (s *LogSender) Send(ctx context.Context, settings Settings, msg *Message) error {
	s.logger.Info("dry run, message not sent",
		zap.String("relay", fmt.Sprintf("%s:%d", settings.Host, settings.Port)),
		zap.Stringer("transport", TransportFor(settings.Port)),
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Bool("html", msg.HTML != ""),
	)
	s.logger.Debug("message body", zap.String("text", msg.Text))
	return nil
}
