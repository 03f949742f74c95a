// Package mail sends transactional email over SMTP or to the log.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/flowdesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned when a message has no recipient
var ErrNoRecipient = errors.New("mail: message has no recipient")

// Message is a single outgoing email with text and HTML alternatives
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("mail: invalid recipient %q: %w", m.To, err)
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return errors.New("mail: subject must be a single line")
	}
	return nil
}

// New returns the mailer selected by cfg.Driver
func New(cfg config.MailConfig, logger *zap.Logger) (Mailer, error) {
	switch cfg.Driver {
	case "log", "":
		return NewLogMailer(logger), nil
	case "smtp":
		return NewSMTPMailer(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported mail driver: %s", cfg.Driver)
	}
}
