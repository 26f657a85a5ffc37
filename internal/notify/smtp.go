package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
)

// ErrNoMailHost is returned by NewSMTP without a host.
var ErrNoMailHost = errors.New("mail host can not be empty")

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP sends messages through an SMTP relay.
type SMTP struct {
	cfg  SMTPConfig
	opts []mail.Option
}

// NewSMTP validates cfg and returns an SMTP notifier. The connection is opened per message.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, ErrNoMailHost
	}

	opts := []mail.Option{mail.WithTLSPolicy(mail.TLSOpportunistic)}

	if cfg.Port != 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	// fail on bad options now instead of on the first message
	if _, err := mail.NewClient(cfg.Host, opts...); err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}

	return &SMTP{cfg: cfg, opts: opts}, nil
}

// Send implements Notifier.
func (s *SMTP) Send(ctx context.Context, to string, msg Message) error {
	m, err := s.build(to, msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.opts...)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}

	if err = client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	return nil
}

func (s *SMTP) build(to string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("mail from %q: %w", s.cfg.From, err)
	}

	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("mail to %q: %w", to, err)
	}

	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	return m, nil
}
