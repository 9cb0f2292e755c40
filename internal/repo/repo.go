package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/magister_portal/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetRole(ctx context.Context, userID, role string) error
	SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error
	// ConsumeResetToken replaces the password hash and clears the reset
	// fields in one update, only if token matches and expires after now.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) error
}

type PostRepo interface {
	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	// AddReaction is a set insertion; repeating it is a no-op.
	AddReaction(ctx context.Context, postID, reactionType, actor string) (*models.Post, error)
	AddComment(ctx context.Context, postID string, c models.Comment) (*models.Post, error)
	// DeletePost returns the removed post so callers can clean up its media.
	DeletePost(ctx context.Context, id string) (*models.Post, error)
}

type ContactRepo interface {
	CreateContact(ctx context.Context, m *models.ContactMessage) error
	ListContacts(ctx context.Context) ([]models.ContactMessage, error)
}

// Store is implemented by every backend.
type Store interface {
	UserRepo
	PostRepo
	ContactRepo
	Ping(ctx context.Context) error
}
