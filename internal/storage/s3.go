package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/imgtext/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 saves uploads into an S3 compatible bucket (AWS, MinIO).
type S3 struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// NewS3 connects to the endpoint and creates the bucket when it is missing.
func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &S3{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// Save uploads data under yyyy/mm/dd/<uuid>/<name>.
func (s *S3) Save(ctx context.Context, name, contentType string, data []byte) (Object, error) {
	if name == "" {
		return Object{}, ErrInvalidName
	}
	key := objectKey(s.now(), uuid.NewString(), name)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Object{}, fmt.Errorf("uploading %s: %w", name, err)
	}
	return Object{Name: name, Key: key, Size: int64(len(data))}, nil
}

func (s *S3) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

func objectKey(t time.Time, id, name string) string {
	return path.Join(t.Format("2006"), t.Format("01"), t.Format("02"), id, name)
}
