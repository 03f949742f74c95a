package mail

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/flowdesk/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTemplates(t *testing.T) {
	tpl, err := NewTemplates("Flowdesk", "https://app.flowdesk.test")
	require.NoError(t, err)

	t.Run("welcome", func(t *testing.T) {
		msg, err := tpl.Welcome("ada@example.com", WelcomeData{Name: "Ada", TenantName: "Ada's workspace"})
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", msg.To)
		assert.Equal(t, "Welcome to Flowdesk", msg.Subject)
		assert.Contains(t, msg.Text, `"Ada's workspace"`)
		assert.Contains(t, msg.HTML, "Ada&#39;s workspace")
	})

	t.Run("password reset carries escaped token link", func(t *testing.T) {
		msg, err := tpl.PasswordReset("ada@example.com", PasswordResetData{
			Name:      "Ada",
			Token:     "abc+def",
			ExpiresIn: time.Hour,
		})
		require.NoError(t, err)
		assert.Contains(t, msg.Text, "https://app.flowdesk.test/reset-password?token=abc%2Bdef")
		assert.Contains(t, msg.Text, "within 1 hour")
		assert.Contains(t, msg.HTML, "reset-password?token=abc%2Bdef")
	})

	t.Run("member added escapes html", func(t *testing.T) {
		msg, err := tpl.MemberAdded("bob@example.com", MemberAddedData{
			Name:        "Bob",
			InviterName: "<script>",
			TenantName:  "Acme",
			RoleName:    "admin",
		})
		require.NoError(t, err)
		assert.Equal(t, "You were added to Acme", msg.Subject)
		assert.Contains(t, msg.Text, "<script> added you")
		assert.NotContains(t, msg.HTML, "<script>")
		assert.Contains(t, msg.HTML, "&lt;script&gt;")
	})
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "3 hours", humanDuration(3*time.Hour))
	assert.Equal(t, "30 minutes", humanDuration(30*time.Minute))
	assert.Equal(t, "a short while", humanDuration(0))
}

func TestLogMailer(t *testing.T) {
	m := NewLogMailer(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, m.Send(ctx, Message{To: "ada@example.com", Subject: "Hi", Text: "hello"}))
	assert.ErrorIs(t, m.Send(ctx, Message{Subject: "Hi"}), ErrNoRecipient)
	assert.Error(t, m.Send(ctx, Message{To: "not-an-address"}))
	assert.Error(t, m.Send(ctx, Message{To: "ada@example.com", Subject: "a\r\nBcc: x@example.com"}))

	sent := m.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "hello", sent[0].Text)
}

func TestNew(t *testing.T) {
	m, err := New(config.MailConfig{Driver: "log"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	_, err = New(config.MailConfig{Driver: "smtp", From: "noreply@flowdesk.test"}, zap.NewNop())
	assert.ErrorContains(t, err, "mail.host")

	_, err = New(config.MailConfig{Driver: "smtp", Host: "smtp.test", From: "bad"}, zap.NewNop())
	assert.ErrorContains(t, err, "mail.from")

	_, err = New(config.MailConfig{Driver: "pigeon"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported mail driver")
}

func TestSMTPMailer_Compose(t *testing.T) {
	m, err := NewSMTPMailer(config.MailConfig{
		Host:     "smtp.test",
		Port:     2525,
		Username: "user",
		Password: "pass",
		From:     "Flowdesk <noreply@flowdesk.test>",
	}, nil)
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
		assert.NotNil(t, a)
		return nil
	}

	err = m.Send(context.Background(), Message{
		To:      "ada@example.com",
		Subject: "Grüße",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.test:2525", gotAddr)
	assert.Equal(t, "noreply@flowdesk.test", gotFrom)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)

	body := string(gotBody)
	assert.Contains(t, body, "From: \"Flowdesk\" <noreply@flowdesk.test>\r\n")
	assert.Contains(t, body, "Subject: =?utf-8?q?Gr=C3=BC=C3=9Fe?=\r\n")
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "plain body")
	assert.Contains(t, body, "<p>html body</p>")
}

func TestSMTPMailer_SendError(t *testing.T) {
	m, err := NewSMTPMailer(config.MailConfig{Host: "smtp.test", From: "noreply@flowdesk.test"}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, m.auth, "no auth without a username")

	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay denied")
	}
	err = m.Send(context.Background(), Message{To: "ada@example.com", Subject: "x", Text: "y"})
	assert.ErrorContains(t, err, "relay denied")
}

func TestSMTPMailer_ContextCancelled(t *testing.T) {
	m, err := NewSMTPMailer(config.MailConfig{Host: "smtp.test", From: "noreply@flowdesk.test"}, zap.NewNop())
	require.NoError(t, err)

	release := make(chan struct{})
	defer close(release)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = m.Send(ctx, Message{To: "ada@example.com", Subject: "x", Text: "y"})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestSMTPMailer_Server drives a real SMTP conversation against a minimal server
func TestSMTPMailer_Server(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go serveOneSMTP(t, ln, received)

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	m, err := NewSMTPMailer(config.MailConfig{Host: host, Port: p, From: "noreply@flowdesk.test"}, zap.NewNop())
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{To: "ada@example.com", Subject: "Hello", Text: "over the wire"})
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.Contains(t, data, "Subject: Hello")
		assert.Contains(t, data, "over the wire")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the message")
	}
}

func serveOneSMTP(t *testing.T, ln net.Listener, received chan<- string) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	reply := func(s string) { _, _ = io.WriteString(conn, s+"\r\n") }
	reply("220 localhost ESMTP")

	var data strings.Builder
	inData := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if inData {
			if line == ".\r\n" {
				inData = false
				received <- data.String()
				reply("250 OK")
				continue
			}
			data.WriteString(line)
			continue
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 localhost")
		case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
			reply("250 OK")
		case cmd == "DATA":
			inData = true
			reply("354 End data with <CR><LF>.<CR><LF>")
		case cmd == "QUIT":
			reply("221 Bye")
			return
		default:
			reply("250 OK")
		}
	}
}
