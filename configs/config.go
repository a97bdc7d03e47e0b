// Package config loads the engine's settings from environment variables
// with typed fallbacks, then layers a persisted JSON override file on top
// so the `config set`/`config show` CLI commands have somewhere durable to
// write, grounded on the reference backend's getEnv/getEnvAsInt/getEnvAsBool
// loader pattern and the original source's Config defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config holds every recognised setting from SPEC_FULL.md §6, both the
// original core options and the ambient/domain additions.
type Config struct {
	// Core
	MaxRetries         int     `json:"max_retries"`
	BackoffBase        float64 `json:"backoff_base"`
	DefaultTimeout     int     `json:"default_timeout"`
	WorkerPollInterval int     `json:"worker_poll_interval"`
	DBPath             string  `json:"db_path"`
	LogDir             string  `json:"log_dir"`

	// Ambient
	LogLevel             string `json:"log_level"`
	LogEncoding          string `json:"log_encoding"`
	StaleProcessingAfter int64  `json:"stale_processing_after"`
	MetricsAddr          string `json:"metrics_addr"`

	// Auth / dashboard
	AuthEnabled bool   `json:"auth_enabled"`
	JWTSecret   string `json:"jwt_secret"`
	RedisAddr   string `json:"redis_addr"`

	// Output archival
	S3Bucket                string `json:"s3_bucket"`
	S3Endpoint              string `json:"s3_endpoint"`
	S3Region                string `json:"s3_region"`
	OutputArchiveThreshold  int    `json:"output_archive_threshold_bytes"`

	// Tracing
	TracingEnabled  bool   `json:"tracing_enabled"`
	TracingEndpoint string `json:"tracing_endpoint"`

	// overridePath is where Set/Show persist, not itself a user-settable key.
	overridePath string `json:"-"`
}

// DefaultConfig mirrors the original source's Config defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:             3,
		BackoffBase:            2,
		DefaultTimeout:         300,
		WorkerPollInterval:     1,
		DBPath:                 "taskforge.db",
		LogDir:                 "logs",
		LogLevel:               "info",
		LogEncoding:            "json",
		StaleProcessingAfter:   0,
		MetricsAddr:            ":9090",
		AuthEnabled:            false,
		OutputArchiveThreshold: 64 * 1024,
	}
}

// Load builds a Config from environment variables, then applies any
// persisted override file on top. overridePath defaults to
// "taskforge.config.json" in the working directory but may be pointed
// anywhere via CONFIG_FILE.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	cfg.MaxRetries = getEnvAsInt("MAX_RETRIES", cfg.MaxRetries)
	cfg.BackoffBase = getEnvAsFloat("BACKOFF_BASE", cfg.BackoffBase)
	cfg.DefaultTimeout = getEnvAsInt("DEFAULT_TIMEOUT", cfg.DefaultTimeout)
	cfg.WorkerPollInterval = getEnvAsInt("WORKER_POLL_INTERVAL", cfg.WorkerPollInterval)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogEncoding = getEnv("LOG_ENCODING", cfg.LogEncoding)
	cfg.StaleProcessingAfter = getEnvAsInt64("STALE_PROCESSING_AFTER", cfg.StaleProcessingAfter)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)
	cfg.AuthEnabled = getEnvAsBool("AUTH_ENABLED", cfg.AuthEnabled)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.S3Bucket = getEnv("S3_BUCKET", "")
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", "")
	cfg.S3Region = getEnv("S3_REGION", "us-east-1")
	cfg.OutputArchiveThreshold = getEnvAsInt("OUTPUT_ARCHIVE_THRESHOLD_BYTES", cfg.OutputArchiveThreshold)
	cfg.TracingEnabled = getEnvAsBool("TRACING_ENABLED", false)
	cfg.TracingEndpoint = getEnv("TRACING_ENDPOINT", "")

	cfg.overridePath = getEnv("CONFIG_FILE", "taskforge.config.json")
	if err := cfg.applyOverrides(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyOverrides() error {
	data, err := os.ReadFile(c.overridePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config overrides: %w", err)
	}
	path := c.overridePath
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config overrides: %w", err)
	}
	c.overridePath = path
	return nil
}

// Set validates and persists a single key=value override, returning an
// error on type mismatch per the CLI's documented exit-code-1 behaviour.
func (c *Config) Set(key, value string) error {
	switch key {
	case "max_retries":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_retries must be an integer: %w", err)
		}
		c.MaxRetries = v
	case "backoff_base":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("backoff_base must be a number: %w", err)
		}
		c.BackoffBase = v
	case "default_timeout":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("default_timeout must be an integer: %w", err)
		}
		c.DefaultTimeout = v
	case "worker_poll_interval":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("worker_poll_interval must be an integer: %w", err)
		}
		c.WorkerPollInterval = v
	case "db_path":
		c.DBPath = value
	case "log_dir":
		c.LogDir = value
	default:
		return fmt.Errorf("unrecognised config key %q", key)
	}
	return c.save()
}

func (c *Config) save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.overridePath, data, 0o644)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return v == "true" || v == "1" || v == "yes"
}
