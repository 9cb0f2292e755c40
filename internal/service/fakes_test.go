package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/magister_portal/internal/config"
	"github.com/Skotchmaster/magister_portal/internal/db"
	"github.com/Skotchmaster/magister_portal/internal/events"
	"github.com/Skotchmaster/magister_portal/internal/hash"
	"github.com/Skotchmaster/magister_portal/internal/mailer"
	"github.com/Skotchmaster/magister_portal/internal/media"
	"github.com/Skotchmaster/magister_portal/internal/models"
	"github.com/Skotchmaster/magister_portal/internal/repo"
)

var errBoom = errors.New("boom")

func newTestStore(t *testing.T) *repo.GormRepo {
	t.Helper()

	gdb, err := db.OpenGorm(context.Background(), config.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return repo.NewGormRepo(gdb)
}

func createUser(t *testing.T, store repo.UserRepo, email, password, role string) *models.User {
	t.Helper()

	h, err := hash.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{Email: email, PasswordHash: h, Role: role}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

type fakeMedia struct {
	mu        sync.Mutex
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeMedia) Upload(_ context.Context, up media.Upload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	_, _ = io.Copy(io.Discard, up.Body)
	url := "/uploads/" + up.Filename
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeMedia) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return f.deleteErr
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
	err  error
}

func (f *fakeMailer) Send(_ context.Context, e mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, ev events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeEvents) Close() error { return nil }

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Type
	}
	return out
}

type fakeIndex struct {
	indexed []string
	deleted []string
	hits    []string
	err     error
}

func (f *fakeIndex) Index(_ context.Context, p *models.Post) error {
	f.indexed = append(f.indexed, p.ID)
	return f.err
}

func (f *fakeIndex) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeIndex) Search(context.Context, string, int, int) (int64, []string, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return int64(len(f.hits)), f.hits, nil
}

// failingPosts fails every insert and delegates the rest.
type failingPosts struct {
	repo.PostRepo
}

func (failingPosts) CreatePost(context.Context, *models.Post) error { return errBoom }
