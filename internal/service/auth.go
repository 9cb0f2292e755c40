package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/magister_portal/internal/events"
	"github.com/Skotchmaster/magister_portal/internal/hash"
	"github.com/Skotchmaster/magister_portal/internal/logging"
	"github.com/Skotchmaster/magister_portal/internal/models"
	"github.com/Skotchmaster/magister_portal/internal/repo"
)

type TokenIssuer interface {
	Issue(u *models.User) (string, error)
}

type AuthService struct {
	Users  repo.UserRepo
	Tokens TokenIssuer
	Events events.Publisher
}

type AuthResult struct {
	Token string
	User  *models.User
}

// Signup always creates a regular user. There is no way to pick a role here.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	email = normalizeEmail(email)
	v := &ValidationError{}
	if !validEmail(email) {
		v.add("email", "Please provide a valid email address")
	}
	checkPassword(v, "password", password)
	if err := v.err(); err != nil {
		l.Warn("signup_rejected", "status", 400, "reason", v.Message())
		return nil, err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}

	// The token is signed before the insert so a signing failure leaves no account behind.
	token, err := s.Tokens.Issue(user)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot issue token", "error", err)
		return nil, err
	}

	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("signup_rejected", "status", 400, "reason", "email already registered")
			return nil, ErrConflict
		}
		l.Error("signup_error", "status", 500, "error", err)
		return nil, err
	}

	publish(ctx, s.Events, events.Event{Type: events.UserRegistered, Key: user.ID, Actor: user.Email})
	l.Info("signup_ok", "user_id", user.ID)
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email = normalizeEmail(email)
	v := &ValidationError{}
	if !validEmail(email) {
		v.add("email", "Please provide a valid email address")
	}
	if password == "" {
		v.add("password", "Password is required")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	user, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_error", "status", 500, "error", err)
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(user)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot issue token", "error", err)
		return nil, err
	}

	publish(ctx, s.Events, events.Event{Type: events.UserLoggedIn, Key: user.ID, Actor: user.Email})
	return &AuthResult{Token: token, User: user}, nil
}

// EnsureAdmin creates the admin account or promotes an existing user to
// admin. An existing account keeps its password.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.ensure_admin")

	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, invalid("email", "Please provide a valid email address")
	}

	user, err := s.Users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user.IsAdmin() {
			return user, nil
		}
		if err := s.Users.SetRole(ctx, user.ID, models.RoleAdmin); err != nil {
			return nil, err
		}
		user.Role = models.RoleAdmin
		l.Info("admin_promoted", "user_id", user.ID)
		return user, nil
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}

	v := &ValidationError{}
	checkPassword(v, "password", password)
	if err := v.err(); err != nil {
		return nil, err
	}
	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user = &models.User{Email: email, PasswordHash: pwHash, Role: models.RoleAdmin}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	l.Info("admin_created", "user_id", user.ID)
	return user, nil
}

// publish sends ev and only logs a failure.
func publish(ctx context.Context, p events.Publisher, ev events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", ev.Type, "key", ev.Key, "error", err)
	}
}
