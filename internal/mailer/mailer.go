package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender sends a notification e-mail. Sending is best-effort: checkout never
// fails because a mail could not be delivered.
type Sender interface {
	Name() string
	Send(ctx context.Context, to, subject, body string) error
}

// SendGridSender delivers mail through the SendGrid API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *slog.Logger
}

// NewSendGridSender creates a SendGrid-backed sender.
func NewSendGridSender(apiKey, fromName, fromAddress string, logger *slog.Logger) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
		logger: logger,
	}
}

// Name returns the sender name.
func (s *SendGridSender) Name() string {
	return "sendgrid"
}

// Send delivers a plain-text message to the given address.
func (s *SendGridSender) Send(ctx context.Context, to, subject, body string) error {
	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), body, "")

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	s.logger.DebugContext(ctx, "mail sent",
		slog.String("to", to),
		slog.String("subject", subject),
	)

	return nil
}

// LogSender logs notifications instead of delivering them. It is used in
// development and testing when no SendGrid key is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a logging sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Name returns the sender name.
func (s *LogSender) Name() string {
	return "log"
}

// Send logs the notification details and always succeeds.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "log sender: mail sent",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
