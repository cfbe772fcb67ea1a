package notify

import (
	"context"
	"fmt"
	"strings"

	"tripvera/internal/config"

	"github.com/mailersend/mailersend-go"
)

// MailerSendMailer delivers reservation emails through the MailerSend API.
type MailerSendMailer struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(cfg config.NotifyConfig) *MailerSendMailer {
	m := &MailerSendMailer{
		enabled: cfg.MailerSendKey != "" && cfg.FromEmail != "",
		from: mailersend.From{
			Name:  cfg.FromName,
			Email: cfg.FromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(cfg.MailerSendKey)
	}

	return m
}

func (m *MailerSendMailer) SendReservationUpdate(ctx context.Context, toEmail, subject, text, html string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
