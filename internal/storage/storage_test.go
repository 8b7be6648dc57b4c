package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gladneycenter/bps-kpi-ingest/internal/config"
)

func TestNewUnknownBackend(t *testing.T) {
	up, err := New(context.Background(), config.StorageConfig{Backend: "azure", Bucket: "b"})
	require.Error(t, err)
	assert.Nil(t, up)
	assert.True(t, errors.Is(err, ErrUpload))
}

func TestNewMinIO(t *testing.T) {
	up, err := New(context.Background(), config.StorageConfig{
		Backend: config.BackendMinIO,
		Bucket:  "kpi-bucket",
		MinIO: config.MinIOConfig{
			Endpoint:  "localhost:9000",
			AccessKey: "access",
			SecretKey: "secret",
		},
	})
	require.NoError(t, err)
	defer up.Close()

	assert.IsType(t, &MinIOUploader{}, up)
	assert.Equal(t, "s3://kpi-bucket/bps_kpis/year=2024/month=03/x.csv", up.URI("bps_kpis/year=2024/month=03/x.csv"))
}

func TestMinIOUploadFailureIsUploadError(t *testing.T) {
	up, err := NewMinIOUploader(config.StorageConfig{
		Bucket: "kpi-bucket",
		MinIO:  config.MinIOConfig{Endpoint: "127.0.0.1:1", AccessKey: "a", SecretKey: "s"},
	})
	require.NoError(t, err)

	local := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(local, []byte("a,b\n1,2\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = up.Upload(ctx, local, "bps_kpis/out.csv")
	assert.ErrorIs(t, err, ErrUpload)
}

func TestGCSURI(t *testing.T) {
	up := &GCSUploader{bucket: "kpi-bucket"}
	assert.Equal(t, "gs://kpi-bucket/bps_kpis/a.csv", up.URI("bps_kpis/a.csv"))
}
