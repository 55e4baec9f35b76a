package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Instantly InstantlyConfig `yaml:"instantly"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Redis     RedisConfig     `yaml:"redis"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// InstantlyConfig holds Instantly API settings. API keys are not configured
// here; each bulk job carries its own per-workspace keys.
type InstantlyConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request HTTP timeout.
func (c InstantlyConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// JobsConfig holds bulk-analytics job tuning knobs
type JobsConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"` // concurrent upstream fetches per workspace
	WindowDays     int `yaml:"window_days"`     // max days per analytics call
	MaxRetries     int `yaml:"max_retries"`     // attempts per upstream call
	// RetentionHours caps how long finished jobs are kept when the Redis
	// store is enabled. 0 means keep forever (in-memory behavior).
	RetentionHours int `yaml:"retention_hours"`
}

// MaxConcurrencyOrDefault returns the configured fetch concurrency ceiling.
func (j JobsConfig) MaxConcurrencyOrDefault() int {
	if j.MaxConcurrency <= 0 {
		return 10
	}
	return j.MaxConcurrency
}

// WindowDaysOrDefault returns the configured window size in days.
func (j JobsConfig) WindowDaysOrDefault() int {
	if j.WindowDays <= 0 {
		return 7
	}
	return j.WindowDays
}

// Retention returns the terminal-job retention TTL, or 0 for unbounded.
func (j JobsConfig) Retention() time.Duration {
	if j.RetentionHours <= 0 {
		return 0
	}
	return time.Duration(j.RetentionHours) * time.Hour
}

// RedisConfig holds optional Redis job-store settings. When Addr is empty
// the in-memory job store is used.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default returns a Config with sensible defaults for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Instantly: InstantlyConfig{
			BaseURL:        "https://api.instantly.ai/api/v2",
			TimeoutSeconds: 30,
		},
		Jobs: JobsConfig{
			MaxConcurrency: 10,
			WindowDays:     7,
			MaxRetries:     5,
		},
	}
}

// Load reads configuration from a YAML file. A missing file is not an
// error; defaults are returned so the server can run from env vars alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from a file and applies environment
// variable overrides.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("INSTANTLY_BASE_URL"); v != "" {
		cfg.Instantly.BaseURL = v
	}
	if v := os.Getenv("INSTANTLY_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Instantly.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv("JOBS_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Jobs.MaxConcurrency = n
		}
	}
	if v := os.Getenv("JOBS_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Jobs.WindowDays = n
		}
	}
	if v := os.Getenv("JOBS_RETENTION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Jobs.RetentionHours = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}

	return cfg, nil
}
