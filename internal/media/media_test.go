package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/magister_portal/internal/config"
	"github.com/Skotchmaster/magister_portal/internal/models"
)

func TestTypeOf(t *testing.T) {
	t.Parallel()

	got, err := TypeOf("image/png")
	require.NoError(t, err)
	assert.Equal(t, models.MediaImage, got)

	got, err = TypeOf("Video/MP4")
	require.NoError(t, err)
	assert.Equal(t, models.MediaVideo, got)

	_, err = TypeOf("application/pdf")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCleanExt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".png", cleanExt("Photo.PNG"))
	assert.Equal(t, "", cleanExt("noext"))
	assert.Equal(t, "", cleanExt("evil.p/hp"))
	assert.Equal(t, "", cleanExt("weird.a b"))
}

func TestLocalStore_UploadDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), Upload{
		Filename:    "cat.jpg",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("meow"),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, LocalURLPrefix))
	require.True(t, strings.HasSuffix(url, ".jpg"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, "meow", string(data))

	require.NoError(t, s.Delete(context.Background(), url))
	_, err = os.Stat(filepath.Join(dir, filepath.Base(url)))
	require.True(t, os.IsNotExist(err))

	// already gone
	require.NoError(t, s.Delete(context.Background(), url))
	require.ErrorIs(t, s.Delete(context.Background(), "https://elsewhere/x.png"), ErrForeignURL)
}

func TestNew_DefaultsToLocal(t *testing.T) {
	t.Parallel()

	store, err := New(context.Background(), config.Config{UploadDir: t.TempDir()})
	require.NoError(t, err)
	_, ok := store.(*LocalStore)
	assert.True(t, ok)
}

type fakeS3 struct {
	put     *s3.PutObjectInput
	deleted *s3.DeleteObjectInput
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	if in.Body != nil {
		_, _ = io.Copy(io.Discard, in.Body)
	}
	f.put = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = in
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	t.Parallel()

	api := &fakeS3{}
	s := newS3Store(api, S3Options{Bucket: "media", Region: "eu-west-1"})

	url, err := s.Upload(context.Background(), Upload{
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		Size:        4,
		Body:        strings.NewReader("data"),
	})
	require.NoError(t, err)
	require.NotNil(t, api.put)

	key := aws.ToString(api.put.Key)
	assert.True(t, strings.HasPrefix(key, "uploads/"))
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/"+key, url)
	assert.Equal(t, types.ObjectCannedACLPublicRead, api.put.ACL)
	assert.Equal(t, "video/mp4", aws.ToString(api.put.ContentType))

	require.NoError(t, s.Delete(context.Background(), url))
	assert.Equal(t, key, aws.ToString(api.deleted.Key))

	require.ErrorIs(t, s.Delete(context.Background(), "/uploads/local.png"), ErrForeignURL)
}

func TestS3Store_EndpointURLAndErrors(t *testing.T) {
	t.Parallel()

	api := &fakeS3{putErr: errors.New("boom")}
	s := newS3Store(api, S3Options{Bucket: "media", Endpoint: "http://minio:9000/"})
	assert.Equal(t, "http://minio:9000/media", s.baseURL)

	_, err := s.Upload(context.Background(), Upload{Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("x")})
	require.Error(t, err)
}
