package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"salesbot_backend/platform/config"
)

const smtpTimeout = 15 * time.Second

// SMTPSender mails owner alerts through one SMTP relay. A client is dialled
// per alert; alerts are rare and the worker retries failures.
type SMTPSender struct {
	host      string
	options   []gomail.Option
	fromName  string
	fromEmail string
}

// NewSMTPSender reads the relay settings once. Authentication is only
// negotiated when a username is configured (local relays accept anonymous
// mail).
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	opts := []gomail.Option{
		gomail.WithPort(cfg.GetSMTPPort()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(smtpTimeout),
		// Some hosts publish AAAA records the container cannot route.
		gomail.WithDialContextFunc(func(ctx context.Context, _ string, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp4", addr)
		}),
	}
	if user := cfg.GetSMTPUsername(); user != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(user),
			gomail.WithPassword(cfg.GetSMTPPassword()),
		)
	}
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		options:   opts,
		fromName:  cfg.GetSMTPFromName(),
		fromEmail: cfg.GetSMTPFromEmail(),
	}
}

// SendOwnerAlert renders the alert and hands it to the relay.
func (s *SMTPSender) SendOwnerAlert(ctx context.Context, toEmail string, alert OwnerAlert) error {
	subject, body, err := renderOwnerAlert(alert)
	if err != nil {
		return err
	}

	msg, err := s.message(toEmail, subject, body)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.host, s.options...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", toEmail, err)
	}
	return nil
}

func (s *SMTPSender) message(to, subject, html string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from %q: %w", s.fromEmail, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("smtp to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)
	return msg, nil
}
