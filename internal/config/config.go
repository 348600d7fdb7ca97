// Package config loads bookmeta settings from config.yaml, the environment
// and .env files.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/bookmeta/internal/resilience"
	"github.com/sells-group/bookmeta/internal/similarity"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Reconcile   ReconcileConfig   `yaml:"reconcile" mapstructure:"reconcile"`
	GoogleBooks GoogleBooksConfig `yaml:"google_books" mapstructure:"google_books"`
	OpenLibrary OpenLibraryConfig `yaml:"open_library" mapstructure:"open_library"`
	Hardcover   HardcoverConfig   `yaml:"hardcover" mapstructure:"hardcover"`
	Resilience  ResilienceConfig  `yaml:"resilience" mapstructure:"resilience"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CacheConfig configures the reconciled record cache.
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TTLSecs   int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// TTL returns the entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

// ReconcileConfig tunes the reconciliation engine.
type ReconcileConfig struct {
	SourceTimeoutSecs int     `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
	TitleThreshold    float64 `yaml:"title_threshold" mapstructure:"title_threshold"`
	AuthorThreshold   float64 `yaml:"author_threshold" mapstructure:"author_threshold"`
	DefaultMaxResults int     `yaml:"default_max_results" mapstructure:"default_max_results"`
	MaxMaxResults     int     `yaml:"max_max_results" mapstructure:"max_max_results"`
}

// SourceTimeout bounds each adapter call.
func (c ReconcileConfig) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutSecs) * time.Second
}

// Policy returns the consistency thresholds.
func (c ReconcileConfig) Policy() similarity.Policy {
	return similarity.Policy{TitleThreshold: c.TitleThreshold, AuthorThreshold: c.AuthorThreshold}
}

// ClampResults applies the default and ceiling to a requested result count.
func (c ReconcileConfig) ClampResults(n int) int {
	if n <= 0 {
		n = c.DefaultMaxResults
	}
	if c.MaxMaxResults > 0 && n > c.MaxMaxResults {
		n = c.MaxMaxResults
	}
	return n
}

// GoogleBooksConfig configures the Google Books client.
type GoogleBooksConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OpenLibraryConfig configures the Open Library client.
type OpenLibraryConfig struct {
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	CoversURL  string  `yaml:"covers_url" mapstructure:"covers_url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// HardcoverConfig configures the Hardcover GraphQL client.
type HardcoverConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ResilienceConfig tunes circuit breakers and HTTP retries.
type ResilienceConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
}

// Breaker returns the circuit breaker settings.
func (c ResilienceConfig) Breaker() resilience.BreakerConfig {
	return resilience.BreakerConfigFrom(c.FailureThreshold, c.ResetTimeoutSecs)
}

// Retry returns the HTTP retry settings.
func (c ResilienceConfig) Retry() resilience.RetryConfig {
	return resilience.RetryConfigFrom(c.MaxAttempts, c.InitialBackoffMs)
}

// BatchConfig bounds batch lookups.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and BOOKMETA_*
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOOKMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "bookmeta.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.namespace", "bookmeta")
	v.SetDefault("cache.ttl_secs", 3600)
	v.SetDefault("reconcile.source_timeout_secs", 8)
	v.SetDefault("reconcile.title_threshold", similarity.DefaultTitleThreshold)
	v.SetDefault("reconcile.author_threshold", similarity.DefaultAuthorThreshold)
	v.SetDefault("reconcile.default_max_results", 10)
	v.SetDefault("reconcile.max_max_results", 40)
	v.SetDefault("google_books.key", "")
	v.SetDefault("google_books.base_url", "https://www.googleapis.com/books/v1")
	v.SetDefault("open_library.base_url", "https://openlibrary.org")
	v.SetDefault("open_library.covers_url", "https://covers.openlibrary.org/b")
	v.SetDefault("open_library.rate_per_sec", 5)
	v.SetDefault("hardcover.base_url", "https://api.hardcover.app/v1/graphql")
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("resilience.max_attempts", 2)
	v.SetDefault("resilience.initial_backoff_ms", 250)
	v.SetDefault("batch.max_concurrent", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is one of "serve",
// "lookup", "batch" or "admin".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Cache.Enabled && c.Cache.TTLSecs <= 0 {
		errs = append(errs, "cache.ttl_secs must be > 0")
	}
	if c.Reconcile.TitleThreshold < 0 || c.Reconcile.TitleThreshold > 1 {
		errs = append(errs, "reconcile.title_threshold must be between 0 and 1")
	}
	if c.Reconcile.AuthorThreshold < 0 || c.Reconcile.AuthorThreshold > 1 {
		errs = append(errs, "reconcile.author_threshold must be between 0 and 1")
	}
	if c.Reconcile.SourceTimeoutSecs <= 0 {
		errs = append(errs, "reconcile.source_timeout_secs must be > 0")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "batch":
		if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 50 {
			errs = append(errs, "batch.max_concurrent must be between 1 and 50")
		}
	case "lookup", "admin":
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", mode))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
