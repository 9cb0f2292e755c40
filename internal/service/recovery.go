package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Skotchmaster/magister_portal/internal/events"
	"github.com/Skotchmaster/magister_portal/internal/hash"
	"github.com/Skotchmaster/magister_portal/internal/logging"
	"github.com/Skotchmaster/magister_portal/internal/mailer"
	"github.com/Skotchmaster/magister_portal/internal/repo"
)

const (
	ResetRequestedMessage = "If an account exists with this email, a recovery link has been sent."
	DefaultResetTTL       = time.Hour
	resetTokenBytes       = 32
)

type RecoveryService struct {
	Users       repo.UserRepo
	Mailer      mailer.Sender
	Events      events.Publisher
	SiteName    string
	FrontendURL string
	TTL         time.Duration
	Now         func() time.Time
}

func (s *RecoveryService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *RecoveryService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultResetTTL
}

// RequestReset behaves the same for known and unknown addresses. Only a
// delivery failure for an existing account is reported.
func (s *RecoveryService) RequestReset(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "recovery.request")

	email = normalizeEmail(email)
	if email == "" {
		return invalid("email", "Email is required")
	}

	user, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			l.Error("reset_lookup_failed", "error", err)
		}
		return nil
	}

	token, err := newResetToken()
	if err != nil {
		l.Error("reset_error", "status", 500, "reason", "token generation failed", "error", err)
		return fmt.Errorf("%w: generate token: %v", ErrUpstream, err)
	}
	if err := s.Users.SetResetToken(ctx, user.ID, token, s.now().Add(s.ttl())); err != nil {
		l.Error("reset_error", "status", 500, "reason", "persist token failed", "error", err)
		return fmt.Errorf("%w: store token: %v", ErrUpstream, err)
	}

	msg := mailer.BuildResetEmail(user.Email, mailer.ResetEmailData{
		SiteName:  s.SiteName,
		ResetLink: s.FrontendURL + "/reset-password.html?token=" + url.QueryEscape(token),
		ExpiresIn: s.ttl(),
	})
	if err := s.Mailer.Send(ctx, msg); err != nil {
		l.Error("reset_error", "status", 500, "reason", "delivery failed", "user_id", user.ID, "error", err)
		return fmt.Errorf("%w: send reset email: %v", ErrUpstream, err)
	}

	l.Info("reset_requested", "user_id", user.ID)
	return nil
}

// ResetPassword consumes the token and sets the new password in one update.
func (s *RecoveryService) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "recovery.reset")

	if token == "" || newPassword == "" {
		return invalid("token", "Token and new password are required")
	}
	v := &ValidationError{}
	checkPassword(v, "newPassword", newPassword)
	if err := v.err(); err != nil {
		return err
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.Users.ConsumeResetToken(ctx, token, pwHash, s.now()); err != nil {
		if errors.Is(err, repo.ErrInvalidResetToken) {
			l.Warn("reset_rejected", "status", 400, "reason", "invalid or expired token")
			return ErrInvalidToken
		}
		l.Error("reset_error", "status", 500, "error", err)
		return err
	}

	publish(ctx, s.Events, events.Event{Type: events.PasswordReset})
	l.Info("password_reset")
	return nil
}

func newResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
