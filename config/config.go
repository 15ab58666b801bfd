// Package config loads service settings from .env files, an optional YAML file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings.
type Config struct {
	Port                 string        `yaml:"port"`
	GinMode              string        `yaml:"gin_mode"`
	DatabasePath         string        `yaml:"database_path"`
	DataDir              string        `yaml:"data_dir"`
	LogLevel             string        `yaml:"log_level"`
	DevMode              bool          `yaml:"dev_mode"`
	RateLimitRPS         float64       `yaml:"rate_limit_rps"`
	RateLimitBurst       int           `yaml:"rate_limit_burst"`
	AuditTimeout         time.Duration `yaml:"audit_timeout"`
	AuditCacheTTL        time.Duration `yaml:"audit_cache_ttl"`
	StatsCleanupSchedule string        `yaml:"stats_cleanup_schedule"` // cron spec
	StatsRetainMonths    int           `yaml:"stats_retain_months"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Port:                 "8082",
		GinMode:              "release",
		DatabasePath:         "seo.db",
		DataDir:              "data",
		LogLevel:             "info",
		RateLimitRPS:         2,
		RateLimitBurst:       5,
		AuditTimeout:         30 * time.Second,
		AuditCacheTTL:        30 * time.Minute,
		StatsCleanupSchedule: "0 3 1 * *",
		StatsRetainMonths:    2,
	}
}

// LoadEnv loads .env.development, falling back to .env. Missing files are not an error.
func LoadEnv() {
	if err := godotenv.Load(".env.development"); err != nil {
		_ = godotenv.Load()
	}
}

// Load builds the configuration. path names an optional YAML file; when empty,
// SEO_CONFIG is consulted, then config.yaml.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SEO_CONFIG")
	}
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.GinMode, "GIN_MODE")
	setString(&cfg.DatabasePath, "DATABASE_PATH")
	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.StatsCleanupSchedule, "STATS_CLEANUP_SCHEDULE")

	if v := os.Getenv("DEV_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEV_MODE: %w", err)
		}
		cfg.DevMode = b
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimitBurst = n
	}
	if v := os.Getenv("STATS_RETAIN_MONTHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STATS_RETAIN_MONTHS: %w", err)
		}
		cfg.StatsRetainMonths = n
	}
	if err := setDuration(&cfg.AuditTimeout, "AUDIT_TIMEOUT"); err != nil {
		return err
	}
	return setDuration(&cfg.AuditCacheTTL, "AUDIT_CACHE_TTL")
}

func (c Config) validate() error {
	if c.Port == "" {
		return errors.New("port must be set")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive (rps=%v burst=%d)", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.AuditTimeout <= 0 {
		return fmt.Errorf("audit timeout must be positive, got %s", c.AuditTimeout)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
