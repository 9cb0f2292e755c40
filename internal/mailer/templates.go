package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

type ResetEmailData struct {
	SiteName  string
	ResetLink string
	ExpiresIn time.Duration
}

func BuildResetEmail(to string, data ResetEmailData) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "You requested a password reset for your %s account.\n\n", data.SiteName)
	text.WriteString("Open this link to choose a new password:\n")
	text.WriteString(data.ResetLink + "\n\n")
	fmt.Fprintf(&text, "The link expires in %s.\n\n", humanDuration(data.ExpiresIn))
	text.WriteString("If you did not request this, you can ignore this email.\n")

	return Email{
		To:       to,
		Subject:  fmt.Sprintf("%s password recovery", data.SiteName),
		TextBody: text.String(),
		HTMLBody: render(resetTmpl, struct {
			ResetEmailData
			Expires string
		}{data, humanDuration(data.ExpiresIn)}),
	}
}

type ContactEmailData struct {
	Name    string
	Email   string
	Message string
	SentAt  time.Time
}

func BuildContactEmail(to string, data ContactEmailData) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "New contact form message from %s <%s>\n", data.Name, data.Email)
	fmt.Fprintf(&text, "Sent at %s\n\n", data.SentAt.UTC().Format(time.RFC1123))
	text.WriteString(data.Message + "\n")

	return Email{
		To:       to,
		Subject:  "New contact message from " + data.Name,
		TextBody: text.String(),
		HTMLBody: render(contactTmpl, data),
		ReplyTo:  data.Email,
	}
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "soon"
	case d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	default:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
}

var resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Password recovery</title></head>
<body style="font-family: Arial, sans-serif; color: #374151;">
  <h2 style="color: #4f46e5;">{{.SiteName}}</h2>
  <p>You requested a password reset.</p>
  <p><a href="{{.ResetLink}}" style="display: inline-block; padding: 12px 24px; background-color: #4f46e5; color: #ffffff; text-decoration: none; border-radius: 6px;">Reset password</a></p>
  <p style="font-size: 13px; color: #9ca3af;">The link expires in {{.Expires}}. If you did not request this, you can ignore this email.</p>
</body>
</html>`))

var contactTmpl = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Contact message</title></head>
<body style="font-family: Arial, sans-serif; color: #374151;">
  <h3>New contact form message</h3>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  <p><strong>Message:</strong></p>
  <p style="white-space: pre-wrap;">{{.Message}}</p>
</body>
</html>`))
