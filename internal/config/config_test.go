package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("BPS_KPI_TOKEN", "secret-token")
	t.Setenv("BUCKET_NAME", "kpi-bucket")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	config, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, DefaultBaseURL, config.API.BaseURL)
	assert.Equal(t, "secret-token", config.API.Token)
	assert.Equal(t, 30*time.Second, config.API.Timeout)
	assert.Equal(t, Endpoints, config.API.Endpoints)
	assert.Equal(t, "kpi-bucket", config.Storage.Bucket)
	assert.Equal(t, BackendGCS, config.Storage.Backend)
	assert.Equal(t, "bps_kpis", config.Storage.Prefix)
	assert.Equal(t, MissingDataSkip, config.Job.MissingData)
	assert.Equal(t, "", config.Job.Schedule)
	assert.Equal(t, 15*time.Minute, config.Job.RunTimeout)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KPI_TEST_MINIO_HOST", "minio.internal:9000")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  timeout: 10s
  requests_per_second: 0.5
storage:
  backend: minio
  prefix: kpi_exports
  minio:
    endpoint: $KPI_TEST_MINIO_HOST
    access_key: "access"
    secret_key: "secret"
    use_ssl: false
job:
  missing_data: fail
  schedule: "0 6 * * *"
logging:
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, config.API.Timeout)
	assert.Equal(t, 0.5, config.API.RequestsPerSecond)
	assert.Equal(t, BackendMinIO, config.Storage.Backend)
	assert.Equal(t, "kpi_exports", config.Storage.Prefix)
	assert.Equal(t, "minio.internal:9000", config.Storage.MinIO.Endpoint)
	assert.False(t, config.Storage.MinIO.UseSSL)
	assert.Equal(t, MissingDataFail, config.Job.MissingData)
	assert.Equal(t, "0 6 * * *", config.Job.Schedule)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadWithEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("MISSING_DATA_POLICY", "fail")
	t.Setenv("RUN_TIMEOUT", "5m")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte("logging:\n  level: debug\n"), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	require.NoError(t, err)

	// Environment variables override the config file
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, MissingDataFail, config.Job.MissingData)
	assert.Equal(t, 5*time.Minute, config.Job.RunTimeout)
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		bucket  string
		wantMsg string
	}{
		{"missing token", "", "kpi-bucket", "BPS_KPI_TOKEN"},
		{"blank token", "   ", "kpi-bucket", "BPS_KPI_TOKEN"},
		{"missing bucket", "secret-token", "", "BUCKET_NAME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BPS_KPI_TOKEN", tt.token)
			t.Setenv("BUCKET_NAME", tt.bucket)

			config, err := Load("")
			require.Error(t, err)
			assert.Nil(t, config)
			assert.True(t, errors.Is(err, ErrConfiguration))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			API:     APIConfig{Token: "t"},
			Storage: StorageConfig{Bucket: "b", Backend: BackendGCS},
			Job:     JobConfig{MissingData: MissingDataSkip},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "azure" }, true},
		{"minio without endpoint", func(c *Config) { c.Storage.Backend = BackendMinIO }, true},
		{"minio with endpoint", func(c *Config) {
			c.Storage.Backend = BackendMinIO
			c.Storage.MinIO.Endpoint = "localhost:9000"
		}, false},
		{"unknown policy", func(c *Config) { c.Job.MissingData = "ignore" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
