package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/chess-graph-crawler/internal/crawler"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, crawler.DefaultBatchSize, cfg.Crawler.BatchSize)
	require.Equal(t, 30*time.Second, cfg.Crawler.IdleInterval)
	require.Equal(t, crawler.DefaultBaseURL, cfg.API.BaseURL)
	require.Equal(t, crawler.NewExponentialRetryPolicy(), cfg.RetryPolicy())
	require.Equal(t, "sqlite", cfg.Store.Driver)
	require.Equal(t, "chess.db", cfg.Store.SQLitePath)
	require.True(t, cfg.Store.AutoMigrate)
	require.Equal(t, "failed.txt", cfg.FailureLog.Path)
	require.Zero(t, cfg.Server.Port)
	require.False(t, cfg.PubSub.Enabled)
	require.True(t, cfg.Logging.Development)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
crawler:
  batch_size: 250
  max_passes: 3
  stop_when_exhausted: true
  idle_interval: 5s
api:
  base_url: http://localhost:9999/pub
  user_agent: test-agent
  timeout: 2s
retry:
  max_attempts: 3
  initial_backoff: 100ms
  multiplier: 3
store:
  driver: postgres
  dsn: postgres://crawler@localhost/chess
  max_conns: 8
  auto_migrate: false
failure_log:
  path: /tmp/failed.txt
server:
  port: 9090
  api_key: secret
pubsub:
  enabled: true
  project_id: chess-project
  topic: players
logging:
  development: false
  verbose: true
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, crawler.Config{
		BatchSize:         250,
		MaxPasses:         3,
		StopWhenExhausted: true,
		IdleInterval:      5 * time.Second,
		Topic:             "players",
	}, cfg.CrawlerConfig())
	require.Equal(t, crawler.ExponentialRetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		Multiplier:     3,
	}, cfg.RetryPolicy())
	require.Equal(t, "test-agent", cfg.API.UserAgent)
	require.Equal(t, 2*time.Second, cfg.API.Timeout)

	sc := cfg.StorageConfig()
	require.Equal(t, "postgres", sc.Driver)
	require.Equal(t, "postgres://crawler@localhost/chess", sc.DSN)
	require.EqualValues(t, 8, sc.MaxConns)
	require.False(t, sc.AutoMigrate)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "secret", cfg.Server.APIKey)
	require.Equal(t, "chess-project", cfg.PubSub.ProjectID)
	require.True(t, cfg.Logging.Verbose)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHESSCRAWLER_CRAWLER_BATCH_SIZE", "42")
	t.Setenv("CHESSCRAWLER_STORE_SQLITE_PATH", "/data/chess.db")
	t.Setenv("CHESSCRAWLER_SERVER_PORT", "8081")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 42, cfg.Crawler.BatchSize)
	require.Equal(t, "/data/chess.db", cfg.Store.SQLitePath)
	require.Equal(t, 8081, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"batch size", func(c *Config) { c.Crawler.BatchSize = 0 }, "crawler.batch_size"},
		{"max passes", func(c *Config) { c.Crawler.MaxPasses = -1 }, "crawler.max_passes"},
		{"retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max attempts"},
		{"retry multiplier", func(c *Config) { c.Retry.Multiplier = 0.5 }, "multiplier"},
		{"base url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url"},
		{"api timeout", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"driver", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"sqlite path", func(c *Config) { c.Store.SQLitePath = "" }, "store.sqlite_path"},
		{"postgres dsn", func(c *Config) { c.Store.Driver = "postgres" }, "store.dsn"},
		{"failure log", func(c *Config) { c.FailureLog.Path = "" }, "failure_log.path"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"pubsub project", func(c *Config) { c.PubSub.Enabled = true }, "pubsub.project_id"},
		{"pubsub topic", func(c *Config) {
			c.PubSub.Enabled = true
			c.PubSub.ProjectID = "p"
			c.PubSub.Topic = ""
		}, "pubsub.topic"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}
