package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jordan-wright/email"
)

// Mailer delivers one message. SMTPMailer is the production implementation.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends through a plain SMTP relay (Mailpit in development).
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer constructs SMTPMailer against host:port.
func NewSMTPMailer(host string, port int, from string) *SMTPMailer {
	return &SMTPMailer{addr: fmt.Sprintf("%s:%d", host, port), from: from}
}

// Send delivers a single text message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := email.NewEmail()
	msg.From = m.from
	msg.To = []string{to}
	msg.Subject = subject
	msg.Text = []byte(body)
	// nil auth: development relays (Mailpit) accept unauthenticated mail.
	return msg.Send(m.addr, nil)
}

// SendEmailJob processes TaskTypeSendEmail tasks.
type SendEmailJob struct {
	Mailer Mailer
	Logger *slog.Logger
}

// Handle delivers the message; malformed payloads are dropped, SMTP
// failures retry.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}
	if err := j.Mailer.Send(payload.To, payload.Subject, payload.Body); err != nil {
		j.Logger.Error("send mail", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	j.Logger.Info("mail sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}
