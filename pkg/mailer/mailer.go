package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Message is a single outgoing email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages through a transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Verify(ctx context.Context) error
	Name() string
}

// Config contains the SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Secure   bool
	Timeout  time.Duration
}

// SMTP sends email through an SMTP relay.
type SMTP struct {
	client   *mail.Client
	from     string
	fromName string
	logger   zerolog.Logger
}

// NewSMTP constructs an SMTP transport. Nothing is dialled until the first send.
func NewSMTP(cfg Config, logger zerolog.Logger) (*SMTP, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host must be provided")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp sender address must be provided")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	options := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(timeout),
	}
	if cfg.Secure {
		options = append(options, mail.WithSSL())
	} else {
		options = append(options, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize smtp client: %w", err)
	}

	return &SMTP{
		client:   client,
		from:     cfg.From,
		fromName: cfg.FromName,
		logger:   logger.With().Str("component", "smtp_mailer").Logger(),
	}, nil
}

// Name identifies the transport.
func (s *SMTP) Name() string {
	return "smtp"
}

// Send builds a multipart message and delivers it.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.fromName, s.from); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}
	return nil
}

// Verify opens and closes a connection to the relay.
func (s *SMTP) Verify(ctx context.Context) error {
	if err := s.client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	if err := s.client.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to close smtp connection")
	}
	return nil
}

// Log writes messages to the logger instead of sending them. It is used when no
// SMTP host is configured.
type Log struct {
	logger zerolog.Logger
}

// NewLog constructs the logging transport.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "log_mailer").Logger()}
}

// Name identifies the transport.
func (l *Log) Name() string {
	return "log"
}

// Send logs the envelope. The body is not logged.
func (l *Log) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient must be provided")
	}

	l.logger.Info().
		Str("to", maskAddress(msg.To)).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.Text)+len(msg.HTML)).
		Msg("email delivered to log transport")
	return nil
}

// Verify always succeeds.
func (l *Log) Verify(context.Context) error {
	return nil
}

func maskAddress(address string) string {
	at := strings.LastIndex(address, "@")
	if at <= 0 {
		return "***"
	}
	return address[:1] + "***" + address[at:]
}
