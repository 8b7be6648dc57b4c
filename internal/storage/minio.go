package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gladneycenter/bps-kpi-ingest/internal/config"
)

// MinIOUploader writes objects to an S3-compatible bucket.
type MinIOUploader struct {
	client *minio.Client
	bucket string
}

func NewMinIOUploader(cfg config.StorageConfig) (*MinIOUploader, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create minio client: %v", ErrUpload, err)
	}

	return &MinIOUploader{client: client, bucket: cfg.Bucket}, nil
}

func (u *MinIOUploader) Upload(ctx context.Context, localPath, objectPath string) error {
	_, err := u.client.FPutObject(ctx, u.bucket, objectPath, localPath, minio.PutObjectOptions{
		ContentType: ContentType,
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrUpload, u.URI(objectPath), err)
	}
	return nil
}

func (u *MinIOUploader) URI(objectPath string) string {
	return fmt.Sprintf("s3://%s/%s", u.bucket, objectPath)
}

// Close is a no-op; minio clients hold no resources beyond idle connections.
func (u *MinIOUploader) Close() error {
	return nil
}

var _ Uploader = (*MinIOUploader)(nil)
