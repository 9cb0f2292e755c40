// Package media stores uploaded post attachments on local disk or in an
// S3 compatible bucket.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/magister_portal/internal/config"
	"github.com/Skotchmaster/magister_portal/internal/models"
)

var (
	ErrUnsupportedType = errors.New("only image and video uploads are allowed")
	ErrForeignURL      = errors.New("url does not belong to this store")
)

type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Store interface {
	// Upload persists the body and returns the public URL.
	Upload(ctx context.Context, up Upload) (string, error)
	Delete(ctx context.Context, url string) error
}

// New picks S3 when a bucket and credentials are configured, local disk
// otherwise.
func New(ctx context.Context, cfg config.Config) (Store, error) {
	if cfg.UseS3() {
		return NewS3Store(ctx, S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	}
	return NewLocalStore(cfg.UploadDir)
}

// TypeOf maps a MIME type onto a post media type.
func TypeOf(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return models.MediaImage, nil
	case strings.HasPrefix(ct, "video/"):
		return models.MediaVideo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
}

// objectName builds "<unix millis>-<random><ext>".
func objectName(filename string, now time.Time) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:12], cleanExt(filename))
}

func cleanExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
