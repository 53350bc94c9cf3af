package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"bb-fantasy/pkg/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const magicLinkSubject = "Sign in to BB Fantasy League"

// SendGridMailer delivers email through the SendGrid v3 API
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *logger.Logger
}

// NewSendGridMailer creates a mailer. host overrides the API origin and is
// only set in tests.
func NewSendGridMailer(apiKey, host, from string, logger *logger.Logger) *SendGridMailer {
	client := sendgrid.NewSendClient(apiKey)
	if host != "" {
		client.Request.BaseURL = strings.TrimRight(host, "/") + "/v3/mail/send"
	}
	return &SendGridMailer{
		client: client,
		from:   mail.NewEmail("BB Fantasy League", from),
		logger: logger,
	}
}

// SendMagicLink emails a sign-in link
func (m *SendGridMailer) SendMagicLink(ctx context.Context, to, link string) error {
	escaped := html.EscapeString(link)
	plain := fmt.Sprintf("Sign in to BB Fantasy League:\n\n%s\n\nThis link expires in 24 hours. If you did not request it, ignore this email.", link)
	rich := fmt.Sprintf(`<p>Click the button below to sign in to <strong>BB Fantasy League</strong>.</p>
<p><a href="%s" style="display:inline-block;padding:12px 24px;background:#2563eb;color:#fff;border-radius:6px;text-decoration:none">Sign in</a></p>
<p>Or paste this link into your browser:<br>%s</p>
<p>This link expires in 24 hours. If you did not request it, ignore this email.</p>`, escaped, escaped)

	message := mail.NewSingleEmail(m.from, magicLinkSubject, mail.NewEmail("", to), plain, rich)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		m.logger.WithError(err).Error("Failed to send magic link email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		m.logger.WithFields(map[string]interface{}{
			"status_code": resp.StatusCode,
			"body":        resp.Body,
		}).Error("SendGrid rejected magic link email")
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}

	m.logger.WithField("status_code", resp.StatusCode).Debug("Magic link email sent")
	return nil
}

// LogMailer writes links to the log instead of sending them. Used when no
// SendGrid key is configured.
type LogMailer struct {
	logger *logger.Logger
}

func NewLogMailer(logger *logger.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendMagicLink(ctx context.Context, to, link string) error {
	m.logger.WithFields(map[string]interface{}{
		"to":   to,
		"link": link,
	}).Info("Magic link (email delivery disabled)")
	return nil
}
