package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/gladneycenter/bps-kpi-ingest/internal/config"
)

// GCSUploader writes objects to a Google Cloud Storage bucket.
type GCSUploader struct {
	client *gcs.Client
	bucket string
}

// NewGCSUploader creates a client using application default credentials,
// or cfg.CredentialsFile when it is set.
func NewGCSUploader(ctx context.Context, cfg config.StorageConfig) (*GCSUploader, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create gcs client: %v", ErrUpload, err)
	}

	return &GCSUploader{client: client, bucket: cfg.Bucket}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, localPath, objectPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrUpload, localPath, err)
	}
	defer f.Close()

	w := u.client.Bucket(u.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = ContentType

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: write %s: %v", ErrUpload, u.URI(objectPath), err)
	}

	// The object is only committed when the writer closes.
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: commit %s: %v", ErrUpload, u.URI(objectPath), err)
	}
	return nil
}

func (u *GCSUploader) URI(objectPath string) string {
	return fmt.Sprintf("gs://%s/%s", u.bucket, objectPath)
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}

var _ Uploader = (*GCSUploader)(nil)
