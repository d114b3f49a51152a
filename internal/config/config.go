package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Object store connection. Empty StoreURL keeps artifacts in OutputDir.
	StoreURL      string `yaml:"store_url"`
	StoreAPIKey   string `yaml:"store_api_key"`
	PublicBaseURL string `yaml:"public_base_url"`
	OutputDir     string `yaml:"output_dir"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Upload workers
	WorkerCount          int `yaml:"worker_count"`
	MaxQueueSize         int `yaml:"max_queue_size"`
	MaxConcurrentUploads int `yaml:"max_concurrent_uploads"`

	// Request limits
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	FetchMaxBytes int64         `yaml:"fetch_max_bytes"`

	// Flattening
	StrictCollisions bool `yaml:"strict_collisions"`

	// Job state
	JobTTL      time.Duration `yaml:"job_ttl"`
	StatsWindow time.Duration `yaml:"stats_window"`
}

func defaults() Config {
	return Config{
		Port:                 "8090",
		OutputDir:            "output",
		WorkerCount:          4,
		MaxQueueSize:         100,
		MaxConcurrentUploads: 8,
		MaxBodyBytes:         52428800, // 50MB
		FetchTimeout:         30 * time.Second,
		FetchMaxBytes:        52428800,
		JobTTL:               1 * time.Hour,
		StatsWindow:          1 * time.Hour,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by FLATJSON_CONFIG, and environment variables, in that order of precedence.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("FLATJSON_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)

	cfg.StoreURL = envOr("STORE_URL", cfg.StoreURL)
	cfg.StoreAPIKey = envOr("STORE_API_KEY", cfg.StoreAPIKey)
	cfg.PublicBaseURL = envOr("PUBLIC_BASE_URL", cfg.PublicBaseURL)
	cfg.OutputDir = envOr("OUTPUT_DIR", cfg.OutputDir)

	cfg.APIKey = envOr("FLATJSON_API_KEY", cfg.APIKey)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxConcurrentUploads = envInt("MAX_CONCURRENT_UPLOADS", cfg.MaxConcurrentUploads)

	cfg.MaxBodyBytes = envInt64("MAX_BODY_BYTES", cfg.MaxBodyBytes)
	cfg.FetchTimeout = envDuration("FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.FetchMaxBytes = envInt64("FETCH_MAX_BYTES", cfg.FetchMaxBytes)

	cfg.StrictCollisions = envBool("STRICT_COLLISIONS", cfg.StrictCollisions)

	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.StatsWindow = envDuration("STATS_WINDOW", cfg.StatsWindow)

	d := defaults()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = d.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = d.MaxQueueSize
	}
	if cfg.MaxConcurrentUploads <= 0 {
		cfg.MaxConcurrentUploads = d.MaxConcurrentUploads
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = d.MaxBodyBytes
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = d.FetchTimeout
	}
	if cfg.FetchMaxBytes <= 0 {
		cfg.FetchMaxBytes = d.FetchMaxBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = d.JobTTL
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = d.StatsWindow
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.StoreURL == "" {
		if c.OutputDir == "" {
			return fmt.Errorf("OUTPUT_DIR is required when STORE_URL is not set")
		}
		return nil
	}
	if err := checkURL("STORE_URL", c.StoreURL); err != nil {
		return err
	}
	if c.PublicBaseURL != "" {
		if err := checkURL("PUBLIC_BASE_URL", c.PublicBaseURL); err != nil {
			return err
		}
	}
	return nil
}

// UseStore reports whether artifacts go to the remote object store.
func (c Config) UseStore() bool {
	return c.StoreURL != ""
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
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
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
