// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/chess-graph-crawler/internal/crawler"
	"github.com/JakeFAU/chess-graph-crawler/internal/storage"
)

// EnvPrefix namespaces environment overrides, e.g. CHESSCRAWLER_STORE_DSN.
const EnvPrefix = "CHESSCRAWLER"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawler    CrawlerConfig    `mapstructure:"crawler"`
	API        APIConfig        `mapstructure:"api"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Store      StoreConfig      `mapstructure:"store"`
	FailureLog FailureLogConfig `mapstructure:"failure_log"`
	Server     ServerConfig     `mapstructure:"server"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// CrawlerConfig governs the frontier loop.
type CrawlerConfig struct {
	BatchSize         int           `mapstructure:"batch_size"`
	MaxPasses         int           `mapstructure:"max_passes"`
	StopWhenExhausted bool          `mapstructure:"stop_when_exhausted"`
	IdleInterval      time.Duration `mapstructure:"idle_interval"`
}

// APIConfig points the resolver at the upstream published-data API.
type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int           `mapstructure:"max_body_bytes"`
}

// RetryConfig configures the resilient fetcher backoff.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
}

// StoreConfig selects and tunes the relational store.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// FailureLogConfig locates the append-only failure log.
type FailureLogConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig controls the ops HTTP server. Port 0 disables it.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// PubSubConfig holds metadata for player.stored notifications.
type PubSubConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ProjectID    string `mapstructure:"project_id"`
	Topic        string `mapstructure:"topic"`
	RecentEvents int    `mapstructure:"recent_events"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
	Verbose     bool `mapstructure:"verbose"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.batch_size", crawler.DefaultBatchSize)
	v.SetDefault("crawler.max_passes", 0)
	v.SetDefault("crawler.stop_when_exhausted", false)
	v.SetDefault("crawler.idle_interval", 30*time.Second)
	v.SetDefault("api.base_url", crawler.DefaultBaseURL)
	v.SetDefault("api.user_agent", "chess-graph-crawler/0.1")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.max_body_bytes", 64<<20)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_backoff", 500*time.Millisecond)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("store.driver", storage.DriverSQLite)
	v.SetDefault("store.sqlite_path", "chess.db")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("store.max_conn_lifetime", time.Hour)
	v.SetDefault("store.auto_migrate", true)
	v.SetDefault("failure_log.path", "failed.txt")
	v.SetDefault("server.port", 0)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "player-stored")
	v.SetDefault("pubsub.recent_events", 256)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.verbose", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := c.CrawlerConfig().Validate(); err != nil {
		return err
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return err
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0")
	}
	switch strings.ToLower(c.Store.Driver) {
	case storage.DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case storage.DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q",
			storage.DriverSQLite, storage.DriverPostgres, c.Store.Driver)
	}
	if c.FailureLog.Path == "" {
		return fmt.Errorf("failure_log.path is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}
	if c.PubSub.Enabled {
		if c.PubSub.ProjectID == "" {
			return fmt.Errorf("pubsub.project_id must be set when pubsub is enabled")
		}
		if c.PubSub.Topic == "" {
			return fmt.Errorf("pubsub.topic must be set when pubsub is enabled")
		}
	}
	return nil
}

// CrawlerConfig converts the crawler section into engine settings.
func (c Config) CrawlerConfig() crawler.Config {
	return crawler.Config{
		BatchSize:         c.Crawler.BatchSize,
		MaxPasses:         c.Crawler.MaxPasses,
		StopWhenExhausted: c.Crawler.StopWhenExhausted,
		IdleInterval:      c.Crawler.IdleInterval,
		Topic:             c.PubSub.Topic,
	}
}

// RetryPolicy converts the retry section into a backoff policy.
func (c Config) RetryPolicy() crawler.ExponentialRetryPolicy {
	return crawler.ExponentialRetryPolicy{
		MaxAttempts:    c.Retry.MaxAttempts,
		InitialBackoff: c.Retry.InitialBackoff,
		Multiplier:     c.Retry.Multiplier,
	}
}

// StorageConfig converts the store section into storage.Open settings.
func (c Config) StorageConfig() storage.Config {
	return storage.Config{
		Driver:          strings.ToLower(c.Store.Driver),
		SQLitePath:      c.Store.SQLitePath,
		DSN:             c.Store.DSN,
		MaxConns:        c.Store.MaxConns,
		MinConns:        c.Store.MinConns,
		MaxConnLifetime: c.Store.MaxConnLifetime,
		AutoMigrate:     c.Store.AutoMigrate,
	}
}
