package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Sender delivers one plaintext message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Options parameterise the SMTP transport.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	StartTLS bool
}

// SMTP sends plaintext mail over a configured SMTP server.
type SMTP struct {
	opts   Options
	logger zerolog.Logger
}

// NewSMTP constructs an SMTP sender.
func NewSMTP(opts Options, logger zerolog.Logger) *SMTP {
	if opts.Port <= 0 {
		opts.Port = 587
	}
	return &SMTP{
		opts:   opts,
		logger: logger.With().Str("component", "smtp_mailer").Logger(),
	}
}

// Send connects, optionally negotiates STARTTLS and authenticates, and
// delivers a single plaintext message. Every call dials a fresh
// connection; delivery failures propagate to the caller.
func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.opts.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := s.newClient()
	if err != nil {
		return err
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	s.logger.Debug().Str("to", to).Str("subject", subject).Msg("mail delivered")
	return nil
}

func (s *SMTP) newClient() (*mail.Client, error) {
	tlsPolicy := mail.NoTLS
	if s.opts.StartTLS {
		tlsPolicy = mail.TLSMandatory
	}

	opts := []mail.Option{
		mail.WithPort(s.opts.Port),
		mail.WithTLSPolicy(tlsPolicy),
	}
	if s.opts.Username != "" && s.opts.Password != "" {
		// Auth mechanism is negotiated from the server's EHLO response;
		// not every provider advertises PLAIN.
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
			mail.WithUsername(s.opts.Username),
			mail.WithPassword(s.opts.Password),
		)
	}

	client, err := mail.NewClient(s.opts.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

var _ Sender = (*SMTP)(nil)
