package repo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/magister_portal/internal/models"
)

// runStoreTests exercises the behaviour every backend must share.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("duplicate email", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.CreateUser(ctx, &models.User{Email: "a@x.com", PasswordHash: "h", Role: models.RoleUser}))
		err := s.CreateUser(ctx, &models.User{Email: "a@x.com", PasswordHash: "h2", Role: models.RoleUser})
		require.ErrorIs(t, err, ErrDuplicate)

		u, err := s.GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "h", u.PasswordHash)

		byID, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, byID.Email)

		_, err = s.GetUserByEmail(ctx, "missing@x.com")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set role", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		u := &models.User{Email: "r@x.com", PasswordHash: "h", Role: models.RoleUser}
		require.NoError(t, s.CreateUser(ctx, u))
		require.NoError(t, s.SetRole(ctx, u.ID, models.RoleAdmin))

		got, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.IsAdmin())

		require.ErrorIs(t, s.SetRole(ctx, "nope", models.RoleAdmin), ErrNotFound)
	})

	t.Run("reset token is single use", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()

		u := &models.User{Email: "reset@x.com", PasswordHash: "old", Role: models.RoleUser}
		require.NoError(t, s.CreateUser(ctx, u))
		require.NoError(t, s.SetResetToken(ctx, u.ID, "tok", now.Add(time.Hour)))

		require.NoError(t, s.ConsumeResetToken(ctx, "tok", "new", now))
		require.ErrorIs(t, s.ConsumeResetToken(ctx, "tok", "newer", now), ErrInvalidResetToken)

		got, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", got.PasswordHash)
		assert.Nil(t, got.ResetToken)
		assert.Nil(t, got.ResetExpiry)
	})

	t.Run("expired reset token", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()

		u := &models.User{Email: "late@x.com", PasswordHash: "old", Role: models.RoleUser}
		require.NoError(t, s.CreateUser(ctx, u))
		require.NoError(t, s.SetResetToken(ctx, u.ID, "tok", now.Add(-time.Minute)))

		require.ErrorIs(t, s.ConsumeResetToken(ctx, "tok", "new", now), ErrInvalidResetToken)

		got, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "old", got.PasswordHash)
	})

	t.Run("posts newest first", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)

		for i := 0; i < 3; i++ {
			p := &models.Post{Text: fmt.Sprintf("post %d", i), Author: "admin@x.com", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
			require.NoError(t, s.CreatePost(ctx, p))
		}

		posts, err := s.ListPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, "post 2", posts[0].Text)
		assert.Equal(t, "post 0", posts[2].Text)
		assert.Empty(t, posts[0].Reactions.Like)
		assert.NotNil(t, posts[0].Comments)
	})

	t.Run("reaction is a set", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := &models.Post{Text: "hello", Author: "admin@x.com"}
		require.NoError(t, s.CreatePost(ctx, p))

		_, err := s.AddReaction(ctx, p.ID, models.ReactionLike, "u@x.com")
		require.NoError(t, err)
		got, err := s.AddReaction(ctx, p.ID, models.ReactionLike, "u@x.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"u@x.com"}, got.Reactions.Like)
		assert.Empty(t, got.Reactions.Love)

		got, err = s.AddReaction(ctx, p.ID, models.ReactionLove, "u@x.com")
		require.NoError(t, err)
		assert.Len(t, got.Reactions.Like, 1)
		assert.Len(t, got.Reactions.Love, 1)

		_, err = s.AddReaction(ctx, "missing", models.ReactionLike, "u@x.com")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent reactions", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := &models.Post{Text: "hello", Author: "admin@x.com"}
		require.NoError(t, s.CreatePost(ctx, p))

		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.AddReaction(ctx, p.ID, models.ReactionLike, fmt.Sprintf("user%d@x.com", i))
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := s.GetPost(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, got.Reactions.Like, n)
	})

	t.Run("comments keep order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := &models.Post{Text: "hello", Author: "admin@x.com"}
		require.NoError(t, s.CreatePost(ctx, p))

		_, err := s.AddComment(ctx, p.ID, models.Comment{Text: "first", Author: "a@x.com"})
		require.NoError(t, err)
		got, err := s.AddComment(ctx, p.ID, models.Comment{Text: "second", Author: "b@x.com"})
		require.NoError(t, err)

		require.Len(t, got.Comments, 2)
		assert.Equal(t, "first", got.Comments[0].Text)
		assert.Equal(t, "second", got.Comments[1].Text)
		assert.False(t, got.Comments[1].CreatedAt.IsZero())

		_, err = s.AddComment(ctx, "missing", models.Comment{Text: "x", Author: "a@x.com"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete post", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := &models.Post{Text: "bye", Author: "admin@x.com", Media: &models.Media{URL: "/uploads/a.png", Type: models.MediaImage}}
		require.NoError(t, s.CreatePost(ctx, p))
		_, err := s.AddReaction(ctx, p.ID, models.ReactionLove, "u@x.com")
		require.NoError(t, err)

		deleted, err := s.DeletePost(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, deleted.Media)
		assert.Equal(t, "/uploads/a.png", deleted.Media.URL)

		_, err = s.GetPost(ctx, p.ID)
		require.ErrorIs(t, err, ErrNotFound)
		_, err = s.DeletePost(ctx, p.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("contacts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)

		require.NoError(t, s.CreateContact(ctx, &models.ContactMessage{Name: "Old", Email: "o@x.com", Message: "first message", CreatedAt: base}))
		require.NoError(t, s.CreateContact(ctx, &models.ContactMessage{Name: "New", Email: "n@x.com", Message: "second message", CreatedAt: base.Add(time.Minute)}))

		items, err := s.ListContacts(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "New", items[0].Name)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, newStore(t).Ping(context.Background()))
	})
}
