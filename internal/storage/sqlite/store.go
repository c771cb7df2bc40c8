// Package sqlite provides the SQLite-backed crawler.Store used for single-file
// local crawls.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/JakeFAU/chess-graph-crawler/internal/crawler"
)

const insertBatchSize = 500

const frontierSubquery = `
	SELECT f.username
	FROM (
		SELECT white_player AS username FROM games
		UNION
		SELECT black_player FROM games
	) f
	LEFT JOIN players p ON p.username = f.username
	WHERE p.username IS NULL AND f.username <> ''`

// Store implements crawler.Store on a SQLite file.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, errors.New("store.sqlite_path is required")
	}
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the crawl and the ops API.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// New opens the database at path and wraps it in a Store.
func New(path string) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an existing gorm handle.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.db)
}

// Frontier returns up to limit referenced-but-unstored usernames in random order.
func (s *Store) Frontier(ctx context.Context, limit int) ([]string, error) {
	usernames := make([]string, 0)
	err := s.db.WithContext(ctx).
		Raw(frontierSubquery+" ORDER BY random() LIMIT ?", limit).
		Scan(&usernames).Error
	if err != nil {
		return nil, fmt.Errorf("query frontier: %w", err)
	}
	return usernames, nil
}

// HasPlayer reports whether a player row exists for username.
func (s *Store) HasPlayer(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&playerModel{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("query player %q: %w", username, err)
	}
	return count > 0, nil
}

// SavePlayer inserts the player row and its games in one transaction.
func (s *Store) SavePlayer(ctx context.Context, player crawler.Player, games []crawler.Game) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := newPlayerModel(player)
		if err := tx.Create(&m).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert player %q: %w", player.Username, crawler.ErrPlayerExists)
			}
			return fmt.Errorf("insert player %q: %w", player.Username, err)
		}
		if len(games) == 0 {
			return nil
		}
		rows := newGameModels(games)
		if err := tx.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert games for %q: %w", player.Username, err)
		}
		return nil
	})
}

// Stats returns table sizes and the current frontier size.
func (s *Store) Stats(ctx context.Context) (crawler.StoreStats, error) {
	var stats crawler.StoreStats
	db := s.db.WithContext(ctx)
	if err := db.Model(&playerModel{}).Count(&stats.Players).Error; err != nil {
		return crawler.StoreStats{}, fmt.Errorf("count players: %w", err)
	}
	if err := db.Model(&gameModel{}).Count(&stats.Games).Error; err != nil {
		return crawler.StoreStats{}, fmt.Errorf("count games: %w", err)
	}
	if err := db.Raw("SELECT count(*) FROM (" + frontierSubquery + ")").Scan(&stats.Frontier).Error; err != nil {
		return crawler.StoreStats{}, fmt.Errorf("count frontier: %w", err)
	}
	return stats, nil
}

// Ping checks that the database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
