package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/magister_portal/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

var _ Store = (*GormRepo)(nil)

type postRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Title     string
	Text      string    `gorm:"not null"`
	MediaURL  string
	MediaType string    `gorm:"size:16"`
	Author    string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index;not null"`
}

func (postRow) TableName() string { return "posts" }

type reactionRow struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PostID    string    `gorm:"size:36;not null;uniqueIndex:idx_post_reaction_actor,priority:1"`
	Type      string    `gorm:"size:16;not null;uniqueIndex:idx_post_reaction_actor,priority:2"`
	Actor     string    `gorm:"not null;uniqueIndex:idx_post_reaction_actor,priority:3"`
	CreatedAt time.Time `gorm:"not null"`
}

func (reactionRow) TableName() string { return "post_reactions" }

// commentRow.Seq preserves insertion order.
type commentRow struct {
	Seq       uint      `gorm:"primaryKey;autoIncrement"`
	PostID    string    `gorm:"size:36;not null;index"`
	Text      string    `gorm:"not null"`
	Author    string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (commentRow) TableName() string { return "post_comments" }

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&postRow{},
		&reactionRow{},
		&commentRow{},
		&models.ContactMessage{},
	)
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.findUser(ctx, "id = ?", id)
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, "email = ?", email)
}

func (r *GormRepo) findUser(ctx context.Context, where string, arg string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where(where, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *GormRepo) SetRole(ctx context.Context, userID, role string) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("set role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"reset_token":  token,
		"reset_expiry": expiry.UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("set reset token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("reset_token = ? AND reset_expiry > ?", token, now.UTC()).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"reset_token":   nil,
			"reset_expiry":  nil,
		})
	if res.Error != nil {
		return fmt.Errorf("consume reset token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidResetToken
	}
	return nil
}

func (r *GormRepo) CreatePost(ctx context.Context, p *models.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	row := postRow{
		ID:        p.ID,
		Title:     p.Title,
		Text:      p.Text,
		Author:    p.Author,
		CreatedAt: p.CreatedAt,
	}
	if p.Media != nil {
		row.MediaURL = p.Media.URL
		row.MediaType = p.Media.Type
	}
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	p.Normalize()
	return nil
}

func (r *GormRepo) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return r.loadPost(r.DB.WithContext(ctx), id)
}

func (r *GormRepo) ListPosts(ctx context.Context) ([]models.Post, error) {
	db := r.DB.WithContext(ctx)

	var rows []postRow
	if err := db.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if len(rows) == 0 {
		return []models.Post{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	var reactions []reactionRow
	if err := db.Where("post_id IN ?", ids).Order("id ASC").Find(&reactions).Error; err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	var comments []commentRow
	if err := db.Where("post_id IN ?", ids).Order("seq ASC").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	byID := make(map[string]*models.Post, len(rows))
	posts := make([]models.Post, len(rows))
	for i, row := range rows {
		posts[i] = row.toModel()
		byID[row.ID] = &posts[i]
	}
	for _, rr := range reactions {
		appendReaction(byID[rr.PostID], rr)
	}
	for _, cr := range comments {
		if p := byID[cr.PostID]; p != nil {
			p.Comments = append(p.Comments, cr.toModel())
		}
	}
	return posts, nil
}

func (r *GormRepo) AddReaction(ctx context.Context, postID, reactionType, actor string) (*models.Post, error) {
	db := r.DB.WithContext(ctx)
	if err := r.postExists(db, postID); err != nil {
		return nil, err
	}

	row := reactionRow{PostID: postID, Type: reactionType, Actor: actor, CreatedAt: time.Now().UTC()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("add reaction: %w", err)
	}
	return r.loadPost(db, postID)
}

func (r *GormRepo) AddComment(ctx context.Context, postID string, c models.Comment) (*models.Post, error) {
	db := r.DB.WithContext(ctx)
	if err := r.postExists(db, postID); err != nil {
		return nil, err
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	row := commentRow{PostID: postID, Text: c.Text, Author: c.Author, CreatedAt: c.CreatedAt}
	if err := db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return r.loadPost(db, postID)
}

func (r *GormRepo) DeletePost(ctx context.Context, id string) (*models.Post, error) {
	var deleted *models.Post
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := r.loadPost(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&reactionRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&commentRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&postRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		deleted = p
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete post: %w", err)
	}
	return deleted, nil
}

func (r *GormRepo) CreateContact(ctx context.Context, m *models.ContactMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := r.DB.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

func (r *GormRepo) ListContacts(ctx context.Context) ([]models.ContactMessage, error) {
	items := []models.ContactMessage{}
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return items, nil
}

func (r *GormRepo) postExists(db *gorm.DB, id string) error {
	var count int64
	if err := db.Model(&postRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("find post: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) loadPost(db *gorm.DB, id string) (*models.Post, error) {
	var row postRow
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}

	var reactions []reactionRow
	if err := db.Where("post_id = ?", id).Order("id ASC").Find(&reactions).Error; err != nil {
		return nil, fmt.Errorf("find reactions: %w", err)
	}
	var comments []commentRow
	if err := db.Where("post_id = ?", id).Order("seq ASC").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}

	p := row.toModel()
	for _, rr := range reactions {
		appendReaction(&p, rr)
	}
	for _, cr := range comments {
		p.Comments = append(p.Comments, cr.toModel())
	}
	return &p, nil
}

func (row postRow) toModel() models.Post {
	p := models.Post{
		ID:        row.ID,
		Title:     row.Title,
		Text:      row.Text,
		Author:    row.Author,
		CreatedAt: row.CreatedAt,
	}
	if row.MediaURL != "" {
		p.Media = &models.Media{URL: row.MediaURL, Type: row.MediaType}
	}
	p.Normalize()
	return p
}

func (row commentRow) toModel() models.Comment {
	return models.Comment{Text: row.Text, Author: row.Author, CreatedAt: row.CreatedAt}
}

func appendReaction(p *models.Post, rr reactionRow) {
	if p == nil {
		return
	}
	switch rr.Type {
	case models.ReactionLike:
		p.Reactions.Like = append(p.Reactions.Like, rr.Actor)
	case models.ReactionLove:
		p.Reactions.Love = append(p.Reactions.Love, rr.Actor)
	}
}
