// Package postgres provides the Postgres-backed crawler.Store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/chess-graph-crawler/internal/crawler"
)

const uniqueViolation = "23505"

const (
	frontierSubquery = `
		SELECT f.username
		FROM (
			SELECT white_player AS username FROM games
			UNION
			SELECT black_player FROM games
		) f
		LEFT JOIN players p ON p.username = f.username
		WHERE p.username IS NULL AND f.username <> ''`

	frontierSQL = frontierSubquery + `
		ORDER BY random()
		LIMIT $1`

	hasPlayerSQL = `SELECT EXISTS (SELECT 1 FROM players WHERE username = $1)`

	insertPlayerSQL = `
		INSERT INTO players (username, name, country, player_id, joined, last_online, followers)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	statsSQL = `
		SELECT
			(SELECT count(*) FROM players),
			(SELECT count(*) FROM games),
			(SELECT count(*) FROM (` + frontierSubquery + `) frontier)`
)

var gameColumns = []string{
	"time_control", "end_time", "rated", "time_class", "rules",
	"white_player", "white_rating", "white_result",
	"black_player", "black_rating", "black_result",
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the subset of *pgxpool.Pool the store needs; pgxmock satisfies it.
type pgxPool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// Store implements crawler.Store on Postgres.
type Store struct {
	pool pgxPool
	raw  *pgxpool.Pool
}

// New connects a pgx pool using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, raw: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool pgxPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	s := &Store{pool: pool}
	if raw, ok := pool.(*pgxpool.Pool); ok {
		s.raw = raw
	}
	return s, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if s.raw == nil {
		return errors.New("migrate requires a pgxpool connection")
	}
	return RunMigrations(ctx, s.raw)
}

// Frontier returns up to limit referenced-but-unstored usernames in random order.
func (s *Store) Frontier(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, frontierSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query frontier: %w", err)
	}
	usernames, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan frontier: %w", err)
	}
	return usernames, nil
}

// HasPlayer reports whether a player row exists for username.
func (s *Store) HasPlayer(ctx context.Context, username string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, hasPlayerSQL, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("query player %q: %w", username, err)
	}
	return exists, nil
}

// SavePlayer inserts the player row and copies its games in one transaction.
func (s *Store) SavePlayer(ctx context.Context, player crawler.Player, games []crawler.Game) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := savePlayer(ctx, tx, player, games); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit player %q: %w", player.Username, err)
	}
	return nil
}

func savePlayer(ctx context.Context, tx pgx.Tx, player crawler.Player, games []crawler.Game) error {
	_, err := tx.Exec(ctx, insertPlayerSQL,
		player.Username,
		player.Name,
		player.Country,
		player.PlayerID,
		player.Joined,
		player.LastOnline,
		player.Followers,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert player %q: %w", player.Username, crawler.ErrPlayerExists)
		}
		return fmt.Errorf("insert player %q: %w", player.Username, err)
	}
	if len(games) == 0 {
		return nil
	}
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"games"}, gameColumns, pgx.CopyFromSlice(len(games), func(i int) ([]any, error) {
		g := games[i]
		return []any{
			g.TimeControl, g.EndTime, g.Rated, g.TimeClass, g.Rules,
			g.White.Username, g.White.Rating, g.White.Result,
			g.Black.Username, g.Black.Rating, g.Black.Result,
		}, nil
	}))
	if err != nil {
		return fmt.Errorf("copy games for %q: %w", player.Username, err)
	}
	if copied != int64(len(games)) {
		return fmt.Errorf("copy games for %q: wrote %d of %d rows", player.Username, copied, len(games))
	}
	return nil
}

// Stats returns table sizes and the current frontier size.
func (s *Store) Stats(ctx context.Context) (crawler.StoreStats, error) {
	var stats crawler.StoreStats
	if err := s.pool.QueryRow(ctx, statsSQL).Scan(&stats.Players, &stats.Games, &stats.Frontier); err != nil {
		return crawler.StoreStats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
