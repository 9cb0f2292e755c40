package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/magister_portal/internal/authz"
	"github.com/Skotchmaster/magister_portal/internal/events"
	"github.com/Skotchmaster/magister_portal/internal/logging"
	"github.com/Skotchmaster/magister_portal/internal/mailer"
	"github.com/Skotchmaster/magister_portal/internal/models"
	"github.com/Skotchmaster/magister_portal/internal/repo"
	"github.com/Skotchmaster/magister_portal/internal/sanitize"
)

type ContactService struct {
	Contacts   repo.ContactRepo
	Mailer     mailer.Sender
	Events     events.Publisher
	AdminEmail string
}

type ContactInput struct {
	Name    string
	Email   string
	Message string
}

// Submit stores the message and notifies the admin. Notification failures
// are logged only.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	l := logging.FromContext(ctx).With("svc", "contact.submit")

	name := sanitize.Text(in.Name)
	email := normalizeEmail(in.Email)
	message := sanitize.Text(in.Message)

	v := &ValidationError{}
	if !lengthBetween(name, 2, 100) {
		v.add("name", "Name must be between 2 and 100 characters")
	}
	if !validEmail(email) {
		v.add("email", "Please provide a valid email address")
	}
	if !lengthBetween(message, 10, 5000) {
		v.add("message", "Message must be between 10 and 5000 characters")
	}
	if err := v.err(); err != nil {
		l.Warn("contact_rejected", "status", 400, "reason", v.Message())
		return nil, err
	}

	msg := &models.ContactMessage{Name: name, Email: email, Message: message}
	if err := s.Contacts.CreateContact(ctx, msg); err != nil {
		l.Error("contact_error", "status", 500, "error", err)
		return nil, err
	}

	if s.Mailer != nil && s.AdminEmail != "" {
		notice := mailer.BuildContactEmail(s.AdminEmail, mailer.ContactEmailData{
			Name:    name,
			Email:   email,
			Message: message,
			SentAt:  time.Now(),
		})
		if err := s.Mailer.Send(ctx, notice); err != nil {
			l.Warn("contact_notify_failed", "error", err)
		}
	}

	publish(ctx, s.Events, events.Event{Type: events.ContactSubmitted, Key: msg.ID, Actor: email})
	return msg, nil
}

func (s *ContactService) List(ctx context.Context, actor *models.User) ([]models.ContactMessage, error) {
	if !authz.Can(actor, authz.ListContacts) {
		return nil, ErrForbidden
	}
	return s.Contacts.ListContacts(ctx)
}
