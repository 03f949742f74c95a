package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*.txt templates/*.html
var templateFS embed.FS

// Templates renders the transactional emails. HTML bodies are escaped by
// html/template, plain text bodies are not.
type Templates struct {
	appName string
	baseURL string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// WelcomeData fills the welcome email
type WelcomeData struct {
	Name       string
	TenantName string
}

// PasswordResetData fills the password reset email
type PasswordResetData struct {
	Name      string
	Token     string
	ExpiresIn time.Duration
}

// MemberAddedData fills the email sent to a user added to a tenant
type MemberAddedData struct {
	Name        string
	InviterName string
	TenantName  string
	RoleName    string
}

func NewTemplates(appName, baseURL string) (*Templates, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}
	return &Templates{appName: appName, baseURL: baseURL, text: text, html: html}, nil
}

func (t *Templates) Welcome(to string, d WelcomeData) (Message, error) {
	return t.render("welcome", to, "Welcome to "+t.appName, map[string]any{
		"Name":       d.Name,
		"TenantName": d.TenantName,
	})
}

func (t *Templates) PasswordReset(to string, d PasswordResetData) (Message, error) {
	resetURL := t.baseURL + "/reset-password?token=" + url.QueryEscape(d.Token)
	return t.render("password_reset", to, "Reset your "+t.appName+" password", map[string]any{
		"Name":      d.Name,
		"ResetURL":  resetURL,
		"ExpiresIn": humanDuration(d.ExpiresIn),
	})
}

func (t *Templates) MemberAdded(to string, d MemberAddedData) (Message, error) {
	return t.render("member_added", to, "You were added to "+d.TenantName, map[string]any{
		"Name":        d.Name,
		"InviterName": d.InviterName,
		"TenantName":  d.TenantName,
		"RoleName":    d.RoleName,
	})
}

func (t *Templates) render(name, to, subject string, data map[string]any) (Message, error) {
	data["AppName"] = t.appName
	data["BaseURL"] = t.baseURL

	var text, html bytes.Buffer
	if err := t.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s text: %w", name, err)
	}
	if err := t.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s html: %w", name, err)
	}
	return Message{To: to, Subject: subject, Text: text.String(), HTML: html.String()}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short while"
	case d%time.Hour == 0 && d >= time.Hour:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	default:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
}
