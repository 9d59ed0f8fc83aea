// Package config loads settings for the contractlens tools from an optional
// YAML file overlaid with environment variables.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"contractlens/internal/services"
	"contractlens/internal/services/ner"
)

const (
	BackendProse  = "prose"
	BackendRemote = "remote"
)

// Largest page the document repository returns
const maxBatchSize = 1000

type Config struct {
	DatabaseURL      string         `yaml:"database_url"`
	LogLevel         string         `yaml:"log_level"`
	Cleanup          bool           `yaml:"cleanup"`
	ScanPersonalData bool           `yaml:"scan_personal_data"`
	NER              NERConfig      `yaml:"ner"`
	Backfill         BackfillConfig `yaml:"backfill"`
}

// NERConfig selects and tunes the entity recognizer
type NERConfig struct {
	Backend   string        `yaml:"backend"` // "prose" | "remote"
	Endpoint  string        `yaml:"endpoint"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, remote only
	Burst     int           `yaml:"burst"`
	RedisURL  string        `yaml:"redis_url"` // enables the entity cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

type BackfillConfig struct {
	Workers    int `yaml:"workers"`
	BatchSize  int `yaml:"batch_size"`
	MaxRetries int `yaml:"max_retries"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		LogLevel: "INFO",
		NER: NERConfig{
			Backend:   BackendProse,
			Timeout:   10 * time.Second,
			RateLimit: 10,
			Burst:     1,
			CacheTTL:  24 * time.Hour,
		},
		Backfill: BackfillConfig{
			Workers:    5,
			BatchSize:  100,
			MaxRetries: 3,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $CONTRACTLENS_CONFIG when path is empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONTRACTLENS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.NER.Backend, "NER_BACKEND")
	setString(&c.NER.Endpoint, "NER_ENDPOINT")
	setString(&c.NER.APIKey, "NER_API_KEY")
	setString(&c.NER.RedisURL, "REDIS_URL")

	if v := os.Getenv("NER_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid NER_RATE_LIMIT %q: %w", v, err)
		}
		c.NER.RateLimit = f
	}
	if err := setDuration(&c.NER.Timeout, "NER_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.NER.CacheTTL, "NER_CACHE_TTL"); err != nil {
		return err
	}
	if v := os.Getenv("BACKFILL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BACKFILL_WORKERS %q: %w", v, err)
		}
		c.Backfill.Workers = n
	}
	if v := os.Getenv("BACKFILL_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BACKFILL_BATCH_SIZE %q: %w", v, err)
		}
		c.Backfill.BatchSize = n
	}
	if v := os.Getenv("CLEANUP_DOCUMENTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CLEANUP_DOCUMENTS %q: %w", v, err)
		}
		c.Cleanup = b
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
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch c.NER.Backend {
	case BackendProse:
	case BackendRemote:
		if c.NER.Endpoint == "" {
			return fmt.Errorf("ner backend %q requires an endpoint", BackendRemote)
		}
	default:
		return fmt.Errorf("unknown ner backend %q", c.NER.Backend)
	}
	if c.NER.RateLimit < 0 {
		return fmt.Errorf("ner rate limit must not be negative")
	}
	if c.Backfill.Workers < 1 {
		return fmt.Errorf("backfill workers must be at least 1, got %d", c.Backfill.Workers)
	}
	if c.Backfill.BatchSize < 1 || c.Backfill.BatchSize > maxBatchSize {
		return fmt.Errorf("backfill batch size must be between 1 and %d, got %d", maxBatchSize, c.Backfill.BatchSize)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Logger returns a text logger writing to w at the configured level
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewRecognizer builds the configured entity recognizer, wrapped in a Redis
// cache when a Redis URL is set. The returned close function releases the
// cache connection.
func (c *Config) NewRecognizer(ctx context.Context, logger *slog.Logger) (services.EntityRecognizer, func() error, error) {
	noop := func() error { return nil }
	if logger == nil {
		logger = slog.Default()
	}

	var recognizer services.EntityRecognizer
	switch c.NER.Backend {
	case BackendRemote:
		limit := rate.Inf
		if c.NER.RateLimit > 0 {
			limit = rate.Limit(c.NER.RateLimit)
		}
		remote, err := ner.NewRemote(ner.RemoteConfig{
			Endpoint:  c.NER.Endpoint,
			APIKey:    c.NER.APIKey,
			Timeout:   c.NER.Timeout,
			RateLimit: limit,
			Burst:     c.NER.Burst,
		})
		if err != nil {
			return nil, noop, err
		}
		recognizer = remote
	case BackendProse:
		recognizer = ner.NewProse()
	default:
		return nil, noop, fmt.Errorf("unknown ner backend %q", c.NER.Backend)
	}

	if c.NER.RedisURL == "" {
		return recognizer, noop, nil
	}
	cache, err := ner.NewRedisCacheFromURL(ctx, c.NER.RedisURL, c.NER.CacheTTL)
	if err != nil {
		return nil, noop, err
	}
	return ner.NewCached(recognizer, cache, logger.With("component", "entity_cache")), cache.Close, nil
}
