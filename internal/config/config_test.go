package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:      "postgres://localhost/brandforge",
		GeminiAPIKey:     "test-key",
		JobConcurrency:   3,
		PollInterval:     2 * time.Second,
		StorageProvider:  "local",
		StorageLocalPath: "./data",
	}
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.GeminiAPIKey = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestValidate_BadConcurrency(t *testing.T) {
	cfg := validConfig()
	cfg.JobConcurrency = 0
	require.Error(t, cfg.Validate())
}

func TestValidate_UnknownStorageProvider(t *testing.T) {
	cfg := validConfig()
	cfg.StorageProvider = "ftp"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage provider")
}

func TestValidate_S3RequiresBucket(t *testing.T) {
	cfg := validConfig()
	cfg.StorageProvider = "s3"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/brandforge")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("JOB_CONCURRENCY", "")
	t.Setenv("JOB_POLL_INTERVAL", "")
	t.Setenv("STORAGE_PROVIDER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.JobConcurrency)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "local", cfg.StorageProvider)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/brandforge")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("JOB_CONCURRENCY", "5")
	t.Setenv("JOB_POLL_INTERVAL", "500ms")
	t.Setenv("STORAGE_PROVIDER", "local")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.JobConcurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
}
