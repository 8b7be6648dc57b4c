//go:generate go run github.com/golang/mock/mockgen -destination=./mocks/uploader.go -package=mocks . Uploader

// Package storage uploads run artifacts to object storage.
//
// Two backends are available:
//   - gcs: Google Cloud Storage, authenticated with application default
//     credentials or an explicit service-account file
//   - minio: any S3-compatible store reachable through minio-go
//
// Example usage:
//
//	up, err := storage.New(ctx, cfg.Storage)
//	if err != nil {
//	    return err
//	}
//	defer up.Close()
//
//	err = up.Upload(ctx, "/tmp/bps_kpis_20240315_102030.csv",
//	    "bps_kpis/year=2024/month=03/bps_kpis_20240315_102030.csv")
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gladneycenter/bps-kpi-ingest/internal/config"
)

// ContentType of every uploaded artifact.
const ContentType = "text/csv"

// ErrUpload wraps every failure reported by a storage backend.
var ErrUpload = errors.New("upload failed")

// Uploader defines the operations the job needs from object storage.
type Uploader interface {
	// Upload copies the local file to objectPath in the configured bucket.
	// A new object is created on every call; callers pick unique paths.
	Upload(ctx context.Context, localPath, objectPath string) error

	// URI returns a human readable location for objectPath.
	URI(objectPath string) string

	// Close releases the backend client.
	Close() error
}

// New returns the Uploader selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Uploader, error) {
	switch cfg.Backend {
	case config.BackendGCS:
		return NewGCSUploader(ctx, cfg)
	case config.BackendMinIO:
		return NewMinIOUploader(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", ErrUpload, cfg.Backend)
	}
}
