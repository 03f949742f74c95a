package mail

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/flowdesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SMTPMailer delivers messages through an SMTP relay with PLAIN auth
type SMTPMailer struct {
	addr   string
	host   string
	auth   smtp.Auth
	from   mail.Address
	logger *zap.Logger

	// replaced in tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.MailConfig, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail.host is required for the smtp driver")
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid mail.from address: %w", err)
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &SMTPMailer{
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		host:   cfg.Host,
		from:   *from,
		logger: logger.Named("mail"),
		send:   smtp.SendMail,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	body, err := m.compose(msg, time.Now())
	if err != nil {
		return err
	}

	// net/smtp has no context support; run the send and honour cancellation
	done := make(chan error, 1)
	go func() {
		done <- m.send(m.addr, m.auth, m.from.Address, []string{msg.To}, body)
	}()
	select {
	case err := <-done:
		if err != nil {
			m.logger.Error("Failed to send email", zap.String("to", msg.To), zap.Error(err))
			return fmt.Errorf("failed to send email: %w", err)
		}
		m.logger.Debug("Email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// compose builds a multipart/alternative RFC 5322 message
func (m *SMTPMailer) compose(msg Message, now time.Time) ([]byte, error) {
	boundary, err := randomBoundary()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", m.from.String())
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", boundary, m.host))
	header("MIME-Version", "1.0")

	html := msg.HTML
	if html == "" {
		header("Content-Type", "text/plain; charset=utf-8")
		header("Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		if err := writeQuotedPrintable(&buf, msg.Text); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	header("Content-Type", `multipart/alternative; boundary="`+boundary+`"`)
	buf.WriteString("\r\n")
	for _, part := range []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", html},
	} {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		header("Content-Type", part.contentType)
		header("Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		if err := writeQuotedPrintable(&buf, part.body); err != nil {
			return nil, err
		}
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}

func writeQuotedPrintable(buf *bytes.Buffer, s string) error {
	w := quotedprintable.NewWriter(buf)
	if _, err := w.Write([]byte(s)); err != nil {
		return err
	}
	return w.Close()
}

func randomBoundary() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate boundary: %w", err)
	}
	return hex.EncodeToString(b), nil
}
