package crawler

import (
	"fmt"
	"time"
)

// DefaultBatchSize is the number of frontier usernames selected per pass.
const DefaultBatchSize = 10000

// Config holds the settings for a crawl session. It is decoupled from Viper
// so the engine can be configured and tested on its own.
type Config struct {
	// BatchSize caps the usernames selected by one SELECT-FRONTIER.
	BatchSize int
	// MaxPasses stops Run after this many passes; 0 means unbounded.
	MaxPasses int
	// StopWhenExhausted stops Run when a pass selects an empty frontier.
	StopWhenExhausted bool
	// IdleInterval is the wait before re-selecting an empty frontier.
	IdleInterval time.Duration
	// Topic receives player.stored events when a Publisher is configured.
	Topic string
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:    DefaultBatchSize,
		IdleInterval: 30 * time.Second,
	}
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("crawler.batch_size must be > 0")
	}
	if c.MaxPasses < 0 {
		return fmt.Errorf("crawler.max_passes must be >= 0")
	}
	if c.IdleInterval < 0 {
		return fmt.Errorf("crawler.idle_interval must be >= 0")
	}
	return nil
}
