// Package mailer sends transactional email.
package mailer

import (
	"context"
	"fmt"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/pkg/config"
)

// Message is a single email to one recipient
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns a SendGrid sender, or a log-only sender when no API key is set
func New(cfg config.MailConfig, log *zap.Logger) Sender {
	if cfg.SendGridAPIKey == "" {
		log.Warn("SENDGRID_API_KEY not set, emails will only be logged")
		return &LogSender{log: log}
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromAddress),
		log:    log,
	}
}

type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
	log    *zap.Logger
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	message := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Text, msg.HTML)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	s.log.Debug("Mail sent",
		zap.Int("status", response.StatusCode),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// LogSender writes messages to the log instead of sending them
type LogSender struct {
	log *zap.Logger
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("Mail not sent (no provider configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// Recorder keeps sent messages in memory. Addresses in Fail are rejected.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Fail map[string]error
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail[msg.To]; err != nil {
		return err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}
