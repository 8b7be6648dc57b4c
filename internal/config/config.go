package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the partner KPI API host.
const DefaultBaseURL = "https://api-bps.gladneycenter.org"

// Endpoints is the fixed, ordered list of KPI paths fetched on every run.
var Endpoints = []string{
	"/api/kpis/em-inquiry-form-syncs",
	"/api/kpis/em-background-form-submissions",
}

// Storage backends.
const (
	BackendGCS   = "gcs"
	BackendMinIO = "minio"
)

// Policies applied when an endpoint answers without data.
const (
	MissingDataSkip = "skip"
	MissingDataFail = "fail"
)

// ErrConfiguration is returned when a required setting is missing or invalid.
var ErrConfiguration = errors.New("configuration error")

// Config holds all configuration for the ingestion job
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
	Job     JobConfig     `mapstructure:"job"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Token             string        `mapstructure:"token"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`

	// Endpoints is not read from any source; Load always sets it to the
	// package level list.
	Endpoints []string `mapstructure:"-"`
}

type StorageConfig struct {
	Backend         string        `mapstructure:"backend"`
	Bucket          string        `mapstructure:"bucket"`
	Prefix          string        `mapstructure:"prefix"`
	UploadTimeout   time.Duration `mapstructure:"upload_timeout"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	MinIO           MinIOConfig   `mapstructure:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type JobConfig struct {
	ScratchDir  string `mapstructure:"scratch_dir"`
	MissingData string `mapstructure:"missing_data"`
	Schedule    string `mapstructure:"schedule"`

	// RunTimeout bounds each scheduled run. Zero disables it.
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps configuration keys to the environment variables that
// override them.
var envBindings = map[string]string{
	"api.token":                "BPS_KPI_TOKEN",
	"api.timeout":              "API_TIMEOUT",
	"storage.bucket":           "BUCKET_NAME",
	"storage.backend":          "STORAGE_BACKEND",
	"storage.prefix":           "STORAGE_PREFIX",
	"storage.upload_timeout":   "UPLOAD_TIMEOUT",
	"storage.credentials_file": "GCS_CREDENTIALS_FILE",
	"storage.minio.endpoint":   "MINIO_ENDPOINT",
	"storage.minio.access_key": "MINIO_ACCESS_KEY",
	"storage.minio.secret_key": "MINIO_SECRET_KEY",
	"storage.minio.use_ssl":    "MINIO_SSL",
	"job.scratch_dir":          "SCRATCH_DIR",
	"job.missing_data":         "MISSING_DATA_POLICY",
	"job.schedule":             "SCHEDULE",
	"job.run_timeout":          "RUN_TIMEOUT",
	"metrics.pushgateway_url":  "PUSHGATEWAY_URL",
	"logging.level":            "LOG_LEVEL",
	"logging.format":           "LOG_FORMAT",
}

// Load reads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence. The result
// is validated before it is returned.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		raw, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(raw); err != nil {
			return nil, fmt.Errorf("failed to merge config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.API.Endpoints = append([]string(nil), Endpoints...)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func readFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables before parsing
	expanded := os.ExpandEnv(string(data))

	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	return raw, nil
}

// Validate reports the first missing or unusable setting. Only the
// settings the job cannot run without are checked.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.Token) == "" {
		return fmt.Errorf("%w: BPS_KPI_TOKEN environment variable is not defined", ErrConfiguration)
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return fmt.Errorf("%w: BUCKET_NAME environment variable is not defined", ErrConfiguration)
	}

	switch c.Storage.Backend {
	case BackendGCS:
	case BackendMinIO:
		if c.Storage.MinIO.Endpoint == "" {
			return fmt.Errorf("%w: MINIO_ENDPOINT is required for the minio backend", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrConfiguration, c.Storage.Backend)
	}

	switch c.Job.MissingData {
	case MissingDataSkip, MissingDataFail:
	default:
		return fmt.Errorf("%w: unknown missing data policy %q", ErrConfiguration, c.Job.MissingData)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.requests_per_second", 2.0)
	v.SetDefault("api.burst", 1)

	v.SetDefault("storage.backend", BackendGCS)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "bps_kpis")
	v.SetDefault("storage.upload_timeout", 2*time.Minute)
	v.SetDefault("storage.credentials_file", "")
	v.SetDefault("storage.minio.endpoint", "")
	v.SetDefault("storage.minio.access_key", "")
	v.SetDefault("storage.minio.secret_key", "")
	v.SetDefault("storage.minio.use_ssl", true)

	v.SetDefault("job.scratch_dir", os.TempDir())
	v.SetDefault("job.missing_data", MissingDataSkip)
	v.SetDefault("job.schedule", "")
	v.SetDefault("job.run_timeout", 15*time.Minute)

	v.SetDefault("metrics.pushgateway_url", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
