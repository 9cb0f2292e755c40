package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Skotchmaster/magister_portal/internal/models"
)

// MongoRepo keeps reactions and comments embedded in the post document so
// every mutation is a single-document update.
type MongoRepo struct {
	db       *mongo.Database
	users    *mongo.Collection
	posts    *mongo.Collection
	contacts *mongo.Collection
}

var _ Store = (*MongoRepo)(nil)

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		db:       db,
		users:    db.Collection("users"),
		posts:    db.Collection("posts"),
		contacts: db.Collection("contacts"),
	}
}

func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	if _, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_users_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "reset_token", Value: 1}},
			Options: options.Index().SetName("idx_users_reset_token").SetSparse(true),
		},
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	if _, err := r.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}},
		Options: options.Index().SetName("idx_posts_created"),
	}); err != nil {
		return fmt.Errorf("posts indexes: %w", err)
	}

	if _, err := r.contacts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}},
		Options: options.Index().SetName("idx_contacts_created"),
	}); err != nil {
		return fmt.Errorf("contacts indexes: %w", err)
	}
	return nil
}

func (r *MongoRepo) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}

func (r *MongoRepo) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, err := r.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *MongoRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *MongoRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, bson.M{"email": email})
}

func (r *MongoRepo) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *MongoRepo) SetRole(ctx context.Context, userID, role string) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"reset_token":  token,
		"reset_expiry": expiry.UTC(),
	}})
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) error {
	filter := bson.M{
		"reset_token":  token,
		"reset_expiry": bson.M{"$gt": now.UTC()},
	}
	update := bson.M{
		"$set":   bson.M{"password_hash": passwordHash},
		"$unset": bson.M{"reset_token": "", "reset_expiry": ""},
	}
	res, err := r.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrInvalidResetToken
	}
	return nil
}

func (r *MongoRepo) CreatePost(ctx context.Context, p *models.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Normalize()
	if _, err := r.posts.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *MongoRepo) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func (r *MongoRepo) ListPosts(ctx context.Context) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	for i := range posts {
		posts[i].Normalize()
	}
	return posts, nil
}

func (r *MongoRepo) AddReaction(ctx context.Context, postID, reactionType, actor string) (*models.Post, error) {
	update := bson.M{"$addToSet": bson.M{"reactions." + reactionType: actor}}
	return r.updatePost(ctx, postID, update)
}

func (r *MongoRepo) AddComment(ctx context.Context, postID string, c models.Comment) (*models.Post, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return r.updatePost(ctx, postID, bson.M{"$push": bson.M{"comments": c}})
}

func (r *MongoRepo) updatePost(ctx context.Context, postID string, update bson.M) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Post
	if err := r.posts.FindOneAndUpdate(ctx, bson.M{"_id": postID}, update, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func (r *MongoRepo) DeletePost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := r.posts.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete post: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func (r *MongoRepo) CreateContact(ctx context.Context, m *models.ContactMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := r.contacts.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (r *MongoRepo) ListContacts(ctx context.Context) ([]models.ContactMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.contacts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer cur.Close(ctx)

	items := []models.ContactMessage{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	return items, nil
}
