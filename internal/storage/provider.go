// Package storage selects and opens the relational crawler.Store configured
// for a run.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/chess-graph-crawler/internal/crawler"
	"github.com/JakeFAU/chess-graph-crawler/internal/storage/postgres"
	"github.com/JakeFAU/chess-graph-crawler/internal/storage/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is a crawler.Store that can create its own schema.
type Store interface {
	crawler.Store
	Migrate(ctx context.Context) error
}

// Config selects the backend.
type Config struct {
	Driver          string
	SQLitePath      string
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	AutoMigrate     bool
}

// Open connects the configured backend and, when AutoMigrate is set, applies
// the embedded migrations before returning.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite:
		store, err = sqlite.New(cfg.SQLitePath)
	case DriverPostgres, "pgx":
		store, err = postgres.New(ctx, postgres.Config{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
		})
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), store.Close())
		}
	}
	return store, nil
}
