package crawler

import (
	"context"
	"time"
)

// Fetcher performs a single GET and returns the status and body. Non-2xx
// statuses are reported in the response; only transport failures are errors.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces crawl pass IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// EntityResolver turns a username into a storable player and its games.
type EntityResolver interface {
	Resolve(ctx context.Context, username string) (Player, []Game, error)
}

// Store is the relational source of truth for the crawl.
type Store interface {
	// Frontier returns up to limit distinct usernames that appear on a stored
	// game but have no player row, in random order.
	Frontier(ctx context.Context, limit int) ([]string, error)
	// HasPlayer reports whether a player row exists for username.
	HasPlayer(ctx context.Context, username string) (bool, error)
	// SavePlayer writes the player and all of its games in one transaction.
	SavePlayer(ctx context.Context, player Player, games []Game) error
	// Stats reports table sizes.
	Stats(ctx context.Context) (StoreStats, error)
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the underlying connections.
	Close() error
}

// FailureSink records usernames whose resolution failed.
type FailureSink interface {
	RecordFailure(ctx context.Context, username string) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
