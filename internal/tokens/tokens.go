package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/magister_portal/internal/models"
)

const DefaultTTL = 7 * 24 * time.Hour

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingSecret = errors.New("token signing secret is not configured")
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserLookup resolves a token subject to a stored user.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Service struct {
	secret []byte
	ttl    time.Duration
	users  UserLookup
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewService(secret []byte, users UserLookup, opts ...Option) *Service {
	s := &Service{
		secret: secret,
		ttl:    DefaultTTL,
		users:  users,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Issue(u *models.User) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}
	if u == nil || u.ID == "" {
		return "", errors.New("issue token: empty user")
	}

	now := s.now()
	claims := Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry, then resolves the subject. All
// failures other than a missing secret are reported as ErrInvalidToken.
func (s *Service) Verify(ctx context.Context, raw string) (*models.User, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}
	if raw == "" {
		return nil, ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	u, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil || u == nil {
		return nil, ErrInvalidToken
	}
	return u, nil
}
