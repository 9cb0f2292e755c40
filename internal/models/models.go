package models

import (
	"encoding/json"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	ReactionLike = "like"
	ReactionLove = "love"
)

const (
	MediaImage = "image"
	MediaVideo = "video"
)

type User struct {
	ID           string     `gorm:"primaryKey;size:36"         bson:"_id"                    json:"id"`
	Email        string     `gorm:"uniqueIndex;not null"       bson:"email"                  json:"email"`
	PasswordHash string     `gorm:"not null"                   bson:"password_hash"          json:"-"`
	Role         string     `gorm:"not null;default:user"      bson:"role"                   json:"role"`
	ResetToken   *string    `gorm:"index"                      bson:"reset_token,omitempty"  json:"-"`
	ResetExpiry  *time.Time `                                  bson:"reset_expiry,omitempty" json:"-"`
	CreatedAt    time.Time  `gorm:"not null"                   bson:"created_at"             json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// PublicUser is the part of a user that is returned to clients.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Role: u.Role}
}

type Media struct {
	URL  string `bson:"url"  json:"url"`
	Type string `bson:"type" json:"type"`
}

// Reactions holds the actor emails per reaction type. Membership is the
// source of truth, counts are derived.
type Reactions struct {
	Like []string `bson:"like" json:"like"`
	Love []string `bson:"love" json:"love"`
}

func (r Reactions) Of(reactionType string) []string {
	switch reactionType {
	case ReactionLike:
		return r.Like
	case ReactionLove:
		return r.Love
	}
	return nil
}

type Comment struct {
	Text      string    `bson:"text"       json:"text"`
	Author    string    `bson:"author"     json:"author"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

type Post struct {
	ID        string    `bson:"_id"             json:"id"`
	Title     string    `bson:"title,omitempty" json:"title,omitempty"`
	Text      string    `bson:"text"            json:"text"`
	Media     *Media    `bson:"media,omitempty" json:"media"`
	Author    string    `bson:"author"          json:"author"`
	CreatedAt time.Time `bson:"created_at"      json:"createdAt"`
	Reactions Reactions `bson:"reactions"       json:"reactions"`
	Comments  []Comment `bson:"comments"        json:"comments"`
}

// Normalize replaces nil collections with empty ones so that clients
// always receive arrays.
func (p *Post) Normalize() {
	if p.Reactions.Like == nil {
		p.Reactions.Like = []string{}
	}
	if p.Reactions.Love == nil {
		p.Reactions.Love = []string{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}

func (p Post) MarshalJSON() ([]byte, error) {
	type plain Post
	p.Normalize()
	return json.Marshal(struct {
		plain
		Likes int `json:"likes"`
		Loves int `json:"loves"`
	}{
		plain: plain(p),
		Likes: len(p.Reactions.Like),
		Loves: len(p.Reactions.Love),
	})
}

type ContactMessage struct {
	ID        string    `gorm:"primaryKey;size:36" bson:"_id"        json:"id"`
	Name      string    `gorm:"not null"           bson:"name"       json:"name"`
	Email     string    `gorm:"not null"           bson:"email"      json:"email"`
	Message   string    `gorm:"not null"           bson:"message"    json:"message"`
	CreatedAt time.Time `gorm:"index;not null"     bson:"created_at" json:"createdAt"`
}
