package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a single message. Implementations report failures; they
// never retry.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type EmailService struct {
	transport Transport
	from      string
	now       func() time.Time
}

func NewEmailService(transport Transport, from string) *EmailService {
	return &EmailService{transport: transport, from: from, now: time.Now}
}

func (s *EmailService) Send(ctx context.Context, msg Message) (err error) {
	if msg.To == "" || !strings.Contains(msg.To, "@") {
		return fmt.Errorf("invalid recipient email: %q", msg.To)
	}
	if strings.ContainsAny(msg.To+msg.Subject, "\r\n") {
		return errors.New("header fields must not contain line breaks")
	}

	client, err := s.transport.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close smtp client: %w", closeErr)
		}
	}()

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(s.compose(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("smtp QUIT: %w", err)
	}
	return nil
}

func (s *EmailService) compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogMailer is used when SMTP is not configured. It only records the
// message in the log.
type LogMailer struct {
	log logger
}

type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
}

func NewLogMailer(log logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.InfoContext(ctx, "email not sent, smtp not configured", "to", msg.To, "subject", msg.Subject)
	return nil
}
