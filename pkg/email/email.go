package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds the outgoing mail settings. An empty Host disables sending.
type SMTPConfig struct {
	Host     string
	Port     string
	Sender   string
	Password string
}

// Sender sends plain text email over SMTP.
type Sender struct {
	cfg SMTPConfig
}

func NewSender(cfg SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

// Enabled reports whether SMTP is configured.
func (s *Sender) Enabled() bool {
	return s != nil && s.cfg.Host != "" && s.cfg.Sender != ""
}

// SendEmail sends a plain text email using SMTP.
func (s *Sender) SendEmail(to, subject, body string) error {
	if !s.Enabled() {
		return fmt.Errorf("smtp is not configured")
	}
	auth := smtp.PlainAuth("", s.cfg.Sender, s.cfg.Password, s.cfg.Host)

	msg := []byte(buildMessage(s.cfg.Sender, to, subject, body))
	address := s.cfg.Host + ":" + s.cfg.Port

	if err := smtp.SendMail(address, auth, s.cfg.Sender, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) string {
	// header injection guard
	clean := func(s string) string { return strings.NewReplacer("\r", "", "\n", "").Replace(s) }
	return "From: " + clean(from) + "\r\n" +
		"To: " + clean(to) + "\r\n" +
		"Subject: " + clean(subject) + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
		"\r\n" + body + "\r\n"
}
