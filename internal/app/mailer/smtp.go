package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds credentials for an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers messages over SMTP with STARTTLS negotiated by the
// server. It renders the built-in plain-text templates per message kind.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates a sender for the given relay.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	subject, body := render(msg)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{msg.Recipient}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func render(msg Message) (subject, body string) {
	firstname := msg.Data["firstname"]
	code := msg.Data["code"]

	switch msg.Kind {
	case KindPasswordReset:
		subject = "Password Reset"
		body = fmt.Sprintf("Hi %s,\n\nUse the code below to reset your password. It expires in 5 minutes.\n\n\t%s\n", firstname, code)
	default:
		subject = "New User"
		body = fmt.Sprintf("Hi %s,\n\nWelcome! Use the code below to verify your account. It expires in 5 minutes.\n\n\t%s\n", firstname, code)
	}
	return subject, body
}
