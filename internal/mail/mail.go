// Package mail hands transactional emails to a transport.
package mail

import (
	"context"
	"fmt"
	"strings"

	"volunteer_chat/pkg/logger"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

func (m Message) Validate() error {
	if m.To == "" || !strings.Contains(m.To, "@") {
		return fmt.Errorf("invalid recipient email: %q", m.To)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("empty subject")
	}
	return nil
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes each email to the structured log instead of a transport.
type LogMailer struct {
	from string
	log  logger.Logger
}

func NewLogMailer(from string, log logger.Logger) *LogMailer {
	return &LogMailer{from: from, log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.log.Info("Email sent", "from", m.from, "to", msg.To, "subject", msg.Subject)
	return nil
}

// NopMailer drops every email; used when mail is disabled.
type NopMailer struct{}

func (NopMailer) Send(context.Context, Message) error { return nil }
