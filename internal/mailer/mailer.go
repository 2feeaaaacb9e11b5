// Package mailer sends the transactional mail the document workflow needs:
// the share link for a new quote and the OTP gating client confirmation.
package mailer

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"

	"preventivo/internal/config"
)

type Mailer interface {
	SendShareLink(ctx context.Context, to, link string) error
	SendOTP(ctx context.Context, to, otp string) error
}

// SMTPMailer delivers through the configured SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return m.client.DialAndSendWithContext(ctx, msg)
}

func (m *SMTPMailer) SendShareLink(ctx context.Context, to, link string) error {
	body := fmt.Sprintf("A document has been shared with you.\n\nOpen it here: %s\n\nThe link expires in 30 days.", link)
	return m.send(ctx, to, "Your document is ready", body)
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, otp string) error {
	body := fmt.Sprintf("Your confirmation code is: %s\n\nEnter it to confirm the document.", otp)
	return m.send(ctx, to, "Your confirmation code", body)
}

// Nop discards all mail; used in dev mode and tests.
type Nop struct{}

func (Nop) SendShareLink(ctx context.Context, to, link string) error { return nil }
func (Nop) SendOTP(ctx context.Context, to, otp string) error        { return nil }
