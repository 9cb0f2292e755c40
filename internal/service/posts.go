package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/magister_portal/internal/authz"
	"github.com/Skotchmaster/magister_portal/internal/events"
	"github.com/Skotchmaster/magister_portal/internal/logging"
	"github.com/Skotchmaster/magister_portal/internal/media"
	"github.com/Skotchmaster/magister_portal/internal/models"
	"github.com/Skotchmaster/magister_portal/internal/repo"
	"github.com/Skotchmaster/magister_portal/internal/sanitize"
	"github.com/Skotchmaster/magister_portal/internal/util"
)

// PostIndex is the full-text index kept next to the post store.
type PostIndex interface {
	Index(ctx context.Context, p *models.Post) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, from, size int) (int64, []string, error)
}

type PostService struct {
	Posts  repo.PostRepo
	Media  media.Store
	Index  PostIndex
	Events events.Publisher
}

type CreatePostInput struct {
	Title  string
	Text   string
	Upload *media.Upload
}

type SearchResult struct {
	Total int64         `json:"total"`
	Posts []models.Post `json:"posts"`
}

// CreatePost uploads the media first and persists the post only after the
// upload succeeded. A failed insert removes the uploaded object again.
func (s *PostService) CreatePost(ctx context.Context, actor *models.User, in CreatePostInput) (*models.Post, error) {
	l := logging.FromContext(ctx).With("svc", "posts.create")

	if !authz.Can(actor, authz.CreatePost) {
		l.Warn("create_post_denied", "status", 403)
		return nil, ErrForbidden
	}

	title := sanitize.Text(in.Title)
	text := sanitize.Text(in.Text)
	if text == "" && in.Upload == nil {
		return nil, invalid("text", "Post text or media is required")
	}
	if len([]rune(title)) > 200 {
		return nil, invalid("title", "Title must be at most 200 characters")
	}

	post := &models.Post{
		Title:  title,
		Text:   text,
		Author: actor.Email,
	}

	if in.Upload != nil {
		mediaType, err := media.TypeOf(in.Upload.ContentType)
		if err != nil {
			return nil, invalid("media", "Only image and video files are allowed")
		}
		url, err := s.Media.Upload(ctx, *in.Upload)
		if err != nil {
			l.Error("create_post_error", "status", 500, "reason", "media upload failed", "error", err)
			return nil, fmt.Errorf("%w: upload media: %v", ErrUpstream, err)
		}
		post.Media = &models.Media{URL: url, Type: mediaType}
	}

	if err := s.Posts.CreatePost(ctx, post); err != nil {
		l.Error("create_post_error", "status", 500, "reason", "persist failed", "error", err)
		if post.Media != nil {
			if derr := s.Media.Delete(ctx, post.Media.URL); derr != nil {
				l.Warn("orphan_media_cleanup_failed", "url", post.Media.URL, "error", derr)
			}
		}
		return nil, err
	}

	if s.Index != nil {
		if err := s.Index.Index(ctx, post); err != nil {
			l.Warn("search_index_failed", "post_id", post.ID, "error", err)
		}
	}
	publish(ctx, s.Events, events.Event{Type: events.PostCreated, Key: post.ID, Actor: actor.Email})
	l.Info("post_created", "post_id", post.ID, "has_media", post.Media != nil)
	return post, nil
}

// ListPosts returns every post, newest first.
func (s *PostService) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.Posts.ListPosts(ctx)
}

func (s *PostService) React(ctx context.Context, actor *models.User, postID, reactionType string) (*models.Post, error) {
	if !authz.Can(actor, authz.React) {
		return nil, ErrForbidden
	}
	reactionType = strings.ToLower(strings.TrimSpace(reactionType))
	if reactionType != models.ReactionLike && reactionType != models.ReactionLove {
		return nil, invalid("type", "Reaction type must be like or love")
	}

	post, err := s.Posts.AddReaction(ctx, postID, reactionType, actor.Email)
	if err != nil {
		return nil, mapNotFound(err)
	}
	publish(ctx, s.Events, events.Event{Type: events.PostReacted, Key: postID, Actor: actor.Email, Data: map[string]string{"reaction": reactionType}})
	return post, nil
}

func (s *PostService) Comment(ctx context.Context, actor *models.User, postID, text string) (*models.Post, error) {
	if !authz.Can(actor, authz.Comment) {
		return nil, ErrForbidden
	}
	text = sanitize.Text(text)
	if text == "" {
		return nil, invalid("text", "Comment text is required")
	}

	post, err := s.Posts.AddComment(ctx, postID, models.Comment{Text: text, Author: actor.Email})
	if err != nil {
		return nil, mapNotFound(err)
	}
	publish(ctx, s.Events, events.Event{Type: events.PostCommented, Key: postID, Actor: actor.Email})
	return post, nil
}

// DeletePost removes the post even when its media or index entry cannot be
// removed; those failures are only logged.
func (s *PostService) DeletePost(ctx context.Context, actor *models.User, postID string) error {
	l := logging.FromContext(ctx).With("svc", "posts.delete", "post_id", postID)

	if !authz.Can(actor, authz.DeletePost) {
		l.Warn("delete_post_denied", "status", 403)
		return ErrForbidden
	}

	post, err := s.Posts.DeletePost(ctx, postID)
	if err != nil {
		return mapNotFound(err)
	}

	if post.Media != nil && s.Media != nil {
		if err := s.Media.Delete(ctx, post.Media.URL); err != nil {
			l.Warn("media_delete_failed", "url", post.Media.URL, "error", err)
		}
	}
	if s.Index != nil {
		if err := s.Index.Delete(ctx, postID); err != nil {
			l.Warn("search_delete_failed", "error", err)
		}
	}
	publish(ctx, s.Events, events.Event{Type: events.PostDeleted, Key: postID, Actor: actor.Email})
	l.Info("post_deleted")
	return nil
}

// SearchPosts resolves index hits against the store so reactions and
// comments are current. Hits for posts deleted in the meantime are skipped.
func (s *PostService) SearchPosts(ctx context.Context, query string, page, size int) (*SearchResult, error) {
	if s.Index == nil {
		return nil, ErrSearchDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("q", "Search query is required")
	}

	from, limit := util.Calculate(page, size)
	total, ids, err := s.Index.Search(ctx, query, from, limit)
	if err != nil {
		logging.FromContext(ctx).Error("search_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: search: %v", ErrUpstream, err)
	}

	posts := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		p, err := s.Posts.GetPost(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return &SearchResult{Total: total, Posts: posts}, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
