// Package config provides configuration loading and validation for the job engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration for the BrandForge worker.
// Values are loaded from the environment; missing values use defaults.
type Config struct {
	// Persistence
	DatabaseURL string // PostgreSQL connection URL (required)

	// AI
	GeminiAPIKey string // Gemini API key (required)
	GeminiModel  string // Generative model name

	// Job runner
	JobConcurrency int           // Maximum concurrently running jobs
	PollInterval   time.Duration // Queue polling period

	// Storage
	StorageProvider  string // "local" or "s3"
	StorageLocalPath string // Base path for local storage
	S3Endpoint       string
	S3Region         string
	S3Bucket         string
	S3AccessKey      string
	S3SecretKey      string
	S3UseSSL         bool
	S3PublicURL      string

	// Browser automation
	ChromePath string // Optional explicit Chrome/Chromium executable path

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		JobConcurrency:   envInt("JOB_CONCURRENCY", 3),
		PollInterval:     envDuration("JOB_POLL_INTERVAL", 2*time.Second),
		StorageProvider:  envOr("STORAGE_PROVIDER", "local"),
		StorageLocalPath: envOr("STORAGE_LOCAL_PATH", "./data"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3Region:         os.Getenv("S3_REGION"),
		S3Bucket:         os.Getenv("S3_BUCKET"),
		S3AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:      os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:         envBool("S3_USE_SSL", true),
		S3PublicURL:      os.Getenv("S3_PUBLIC_URL"),
		ChromePath:       os.Getenv("CHROME_PATH"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required")
	}
	if c.JobConcurrency < 1 {
		return fmt.Errorf("config error: JOB_CONCURRENCY must be at least 1")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config error: JOB_POLL_INTERVAL must be positive")
	}
	switch c.StorageProvider {
	case "local":
		if c.StorageLocalPath == "" {
			return fmt.Errorf("config error: STORAGE_LOCAL_PATH is required for local storage")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("config error: S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("config error: unknown storage provider %q (supported: local, s3)", c.StorageProvider)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
