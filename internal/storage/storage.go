// Package storage uploads submission artifacts to an S3-compatible object
// store. Every submission gets its own folder derived from the business name
// and the submission time, and documents uploaded later reuse that folder.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"funding-apply/internal/common/config"
	"funding-apply/internal/common/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ISO 8601 basic format, path safe.
const folderTimestamp = "20060102T150405Z"

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeBusinessName lowercases the name and collapses everything outside
// [a-z0-9] into single hyphens, yielding a path-safe folder segment.
func SanitizeBusinessName(name string) string {
	s := unsafeChars.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "unnamed-business"
	}
	return s
}

// Folder identifies one submission's location in the bucket. It is created
// once per submission and reused by the document step, never deleted.
type Folder struct {
	Path      string
	CreatedAt time.Time
}

// NewFolder derives the submission folder from the business name and clock.
func NewFolder(businessName string, now time.Time) Folder {
	now = now.UTC()
	return Folder{
		Path:      path.Join("applications", SanitizeBusinessName(businessName), now.Format(folderTimestamp)),
		CreatedAt: now,
	}
}

// ObjectStore is the upload surface the pipeline and document step consume.
type ObjectStore interface {
	Upload(ctx context.Context, folder Folder, filename, contentType string, data []byte) (string, error)
}

// MinioStore uploads to a MinIO or S3 bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    logger.Logger
}

func NewMinioStore(cfg config.StorageConfig, log logger.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &MinioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    log.WithFields(map[string]interface{}{"component": "storage"}),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket check: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("bucket create: %w", err)
	}
	s.logger.Info("bucket created", map[string]interface{}{"bucket": s.bucket})
	return nil
}

// Upload writes one object into the folder and returns its public URL.
func (s *MinioStore) Upload(ctx context.Context, folder Folder, filename, contentType string, data []byte) (string, error) {
	object := path.Join(folder.Path, filename)
	_, err := s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, object)
	s.logger.Info("object uploaded", map[string]interface{}{
		"object": object,
		"bytes":  len(data),
	})
	return url, nil
}
