package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/chess-graph-crawler/internal/metrics"
)

// Engine runs the frontier crawl: select the referenced-but-unstored
// usernames from the store, resolve each one, persist it, repeat.
type Engine struct {
	cfg       Config
	store     Store
	resolver  EntityResolver
	failures  FailureSink
	publisher Publisher
	sleeper   Sleeper
	clock     Clock
	ids       IDGenerator
	logger    *zap.Logger
}

// Dependencies groups the collaborators injected into an Engine. Publisher is
// optional.
type Dependencies struct {
	Store     Store
	Resolver  EntityResolver
	Failures  FailureSink
	Publisher Publisher
	Sleeper   Sleeper
	Clock     Clock
	IDs       IDGenerator
}

// NewEngine wires an Engine from its configuration and dependencies.
func NewEngine(cfg Config, deps Dependencies, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Store == nil:
		return nil, errors.New("store is required")
	case deps.Resolver == nil:
		return nil, errors.New("resolver is required")
	case deps.Failures == nil:
		return nil, errors.New("failure sink is required")
	case deps.Sleeper == nil:
		return nil, errors.New("sleeper is required")
	case deps.Clock == nil:
		return nil, errors.New("clock is required")
	case deps.IDs == nil:
		return nil, errors.New("id generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Engine{
		cfg:       cfg,
		store:     deps.Store,
		resolver:  deps.Resolver,
		failures:  deps.Failures,
		publisher: deps.Publisher,
		sleeper:   deps.Sleeper,
		clock:     deps.Clock,
		ids:       deps.IDs,
		logger:    logger,
	}, nil
}

// Run loops passes until ctx is done, MaxPasses is reached, or the frontier
// is empty and StopWhenExhausted is set. Cancellation is reported as the
// context error.
func (e *Engine) Run(ctx context.Context) error {
	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("crawl stopped: %w", err)
		}
		stats, err := e.RunPass(ctx)
		if err != nil {
			return err
		}
		if e.cfg.MaxPasses > 0 && pass >= e.cfg.MaxPasses {
			e.logger.Info("pass limit reached", zap.Int("passes", pass))
			return nil
		}
		if stats.Selected > 0 {
			continue
		}
		if e.cfg.StopWhenExhausted {
			e.logger.Info("frontier exhausted", zap.Int("passes", pass))
			return nil
		}
		e.logger.Debug("frontier empty, waiting", zap.Duration("idle_interval", e.cfg.IdleInterval))
		if err := e.sleeper.Sleep(ctx, e.cfg.IdleInterval); err != nil {
			return fmt.Errorf("crawl stopped: %w", err)
		}
	}
}

// RunPass performs one SELECT-FRONTIER followed by PROCESS-ENTITY over the
// selected usernames. Only store failures and cancellation are returned.
func (e *Engine) RunPass(ctx context.Context) (PassStats, error) {
	passID, err := e.ids.NewID()
	if err != nil {
		return PassStats{}, fmt.Errorf("new pass id: %w", err)
	}
	logger := e.logger.With(zap.String("pass_id", passID))

	logger.Debug("selecting frontier", zap.Int("batch_size", e.cfg.BatchSize))
	usernames, err := e.store.Frontier(ctx, e.cfg.BatchSize)
	if err != nil {
		return PassStats{PassID: passID}, fmt.Errorf("select frontier: %w", err)
	}
	metrics.SetFrontierBatch(len(usernames))
	logger.Info("frontier selected", zap.Int("usernames", len(usernames)))

	stats, err := e.process(ctx, passID, usernames, logger)
	logger.Info("pass finished",
		zap.Int("selected", stats.Selected),
		zap.Int("stored", stats.Stored),
		zap.Int("failed", stats.Failed),
		zap.Int("games", stats.Games),
	)
	return stats, err
}

// Seed resolves explicitly named usernames, skipping any already stored. It
// bootstraps an empty store, whose frontier is necessarily empty.
func (e *Engine) Seed(ctx context.Context, usernames []string) (PassStats, error) {
	passID, err := e.ids.NewID()
	if err != nil {
		return PassStats{}, fmt.Errorf("new pass id: %w", err)
	}
	logger := e.logger.With(zap.String("pass_id", passID))

	pending := make([]string, 0, len(usernames))
	seen := make(map[string]struct{}, len(usernames))
	skipped := 0
	for _, raw := range usernames {
		username := NormalizeUsername(raw)
		if username == "" {
			continue
		}
		if _, ok := seen[username]; ok {
			continue
		}
		seen[username] = struct{}{}
		exists, err := e.store.HasPlayer(ctx, username)
		if err != nil {
			return PassStats{PassID: passID}, fmt.Errorf("check player %q: %w", username, err)
		}
		if exists {
			logger.Info("seed already stored", zap.String("username", username))
			skipped++
			continue
		}
		pending = append(pending, username)
	}

	stats, err := e.process(ctx, passID, pending, logger)
	stats.Skipped += skipped
	return stats, err
}

func (e *Engine) process(ctx context.Context, passID string, usernames []string, logger *zap.Logger) (PassStats, error) {
	stats := PassStats{PassID: passID, Selected: len(usernames)}
	for _, username := range usernames {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("crawl stopped: %w", err)
		}
		games, err := e.processOne(ctx, passID, username, logger)
		switch {
		case err == nil:
			stats.Stored++
			stats.Games += games
		case errors.Is(err, errSkipped):
			stats.Skipped++
		case errors.Is(err, errResolution):
			stats.Failed++
		default:
			return stats, err
		}
	}
	return stats, nil
}

var (
	errSkipped    = errors.New("username skipped")
	errResolution = errors.New("resolution failed")
)

func (e *Engine) processOne(ctx context.Context, passID, username string, logger *zap.Logger) (int, error) {
	logger = logger.With(zap.String("username", username))
	logger.Debug("getting data")

	player, games, err := e.resolver.Resolve(ctx, username)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("crawl stopped: %w", ctxErr)
		}
		e.recordFailure(ctx, username, err, logger)
		return 0, errResolution
	}

	if err := e.store.SavePlayer(ctx, player, games); err != nil {
		if errors.Is(err, ErrPlayerExists) {
			logger.Warn("player already stored", zap.Error(err))
			return 0, errSkipped
		}
		return 0, fmt.Errorf("save player %q: %w", username, err)
	}
	metrics.ObservePlayerStored(len(games))
	logger.Debug("player stored", zap.Int("games", len(games)))

	e.publishStored(ctx, passID, player, len(games), logger)
	return len(games), nil
}

func (e *Engine) recordFailure(ctx context.Context, username string, cause error, logger *zap.Logger) {
	reason := failureReason(cause)
	metrics.ObserveResolutionFailure(reason)
	logger.Warn("resolution failed", zap.String("reason", reason), zap.Error(cause))
	if err := e.failures.RecordFailure(ctx, username); err != nil {
		logger.Error("record failure", zap.Error(err))
	}
}

func (e *Engine) publishStored(ctx context.Context, passID string, player Player, games int, logger *zap.Logger) {
	if e.publisher == nil || e.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"pass_id":   passID,
		"username":  player.Username,
		"games":     games,
		"stored_at": e.clock.Now().Format(time.RFC3339),
	}
	if _, err := e.publisher.Publish(ctx, e.cfg.Topic, payload); err != nil {
		logger.Warn("publish player stored", zap.Error(err))
	}
}
