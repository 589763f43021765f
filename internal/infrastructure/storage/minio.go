package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

const defaultMaxSize = 5 << 20

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
	MaxSize   int64
}

// MinIOUploader stores uploads (avatars, license scans) in an S3-compatible
// bucket and returns their public URL.
type MinIOUploader struct {
	client    *minio.Client
	bucket    string
	publicURL string
	maxSize   int64
	log       zerolog.Logger
}

func NewMinIOUploader(ctx context.Context, cfg Config, log zerolog.Logger) (*MinIOUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("bucket created")
	}

	u := newUploader(cfg, log)
	u.client = client
	return u, nil
}

func newUploader(cfg Config, log zerolog.Logger) *MinIOUploader {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}
	return &MinIOUploader{bucket: cfg.Bucket, publicURL: publicURL, maxSize: maxSize, log: log}
}

// Upload rejects oversized and unsupported files before touching the
// network; those failures are not retryable.
func (u *MinIOUploader) Upload(ctx context.Context, in ports.UploadInput) (string, error) {
	ext, err := u.check(in)
	if err != nil {
		return "", err
	}

	object := fmt.Sprintf("uploads/%s/%s%s", time.Now().UTC().Format("2006/01"), uuid.NewString(), ext)
	_, err = u.client.PutObject(ctx, u.bucket, object, in.Body, in.Size, minio.PutObjectOptions{
		ContentType: in.ContentType,
	})
	if err != nil {
		return "", &domain.UploadError{Reason: "storage rejected the file", Retryable: true, Err: err}
	}

	u.log.Info().Str("object", object).Int64("size", in.Size).Msg("file uploaded")
	return u.objectURL(object), nil
}

func (u *MinIOUploader) check(in ports.UploadInput) (string, error) {
	if in.Body == nil || in.Size <= 0 {
		return "", &domain.UploadError{Reason: "file is empty"}
	}
	if in.Size > u.maxSize {
		return "", &domain.UploadError{Reason: fmt.Sprintf("file exceeds %d bytes", u.maxSize)}
	}
	ext, ok := allowedTypes[strings.ToLower(in.ContentType)]
	if !ok {
		return "", &domain.UploadError{Reason: fmt.Sprintf("content type %q is not allowed", in.ContentType)}
	}
	if orig := strings.ToLower(filepath.Ext(in.Filename)); orig == ".jpeg" && ext == ".jpg" {
		ext = orig
	}
	return ext, nil
}

func (u *MinIOUploader) objectURL(object string) string {
	return fmt.Sprintf("%s/%s/%s", u.publicURL, u.bucket, object)
}

// Ping reports whether the bucket is reachable.
func (u *MinIOUploader) Ping(ctx context.Context) error {
	_, err := u.client.BucketExists(ctx, u.bucket)
	return err
}
