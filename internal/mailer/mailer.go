package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/Skotchmaster/magister_portal/internal/logging"
)

type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
	ReplyTo  string
}

type Sender interface {
	Send(ctx context.Context, e Email) error
}

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	opts SMTPOptions
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(opts SMTPOptions) *SMTPSender {
	if opts.From == "" {
		opts.From = opts.Username
	}
	return &SMTPSender{opts: opts, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.To == "" {
		return errors.New("email recipient is empty")
	}

	msg, err := buildMessage(s.opts.From, e, time.Now())
	if err != nil {
		return err
	}

	addr := s.opts.Host + ":" + strconv.Itoa(s.opts.Port)
	auth := smtp.PlainAuth("", s.opts.Username, s.opts.Password, s.opts.Host)
	if err := s.send(addr, auth, s.opts.From, []string{e.To}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMessage(from string, e Email, now time.Time) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", e.TextBody},
		{"text/html; charset=UTF-8", e.HTMLBody},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, fmt.Errorf("build message: %w", err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("build message: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build message: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", e.To)
	if e.ReplyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", e.ReplyTo)
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", now.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// LogSender writes emails to the request logger instead of delivering them.
// Used when SMTP is not configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, e Email) error {
	logging.FromContext(ctx).Info("email_not_sent",
		"reason", "smtp not configured",
		"to", e.To,
		"subject", e.Subject,
	)
	return nil
}
