// Package app initializes and holds long-lived application services, acting as
// a dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/chess-graph-crawler/internal/api"
	"github.com/JakeFAU/chess-graph-crawler/internal/clock/system"
	"github.com/JakeFAU/chess-graph-crawler/internal/config"
	"github.com/JakeFAU/chess-graph-crawler/internal/crawler"
	"github.com/JakeFAU/chess-graph-crawler/internal/failurelog"
	collyfetcher "github.com/JakeFAU/chess-graph-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/chess-graph-crawler/internal/id/uuid"
	memorypublisher "github.com/JakeFAU/chess-graph-crawler/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/chess-graph-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/chess-graph-crawler/internal/storage"
)

// App holds the shared, long-lived services for one CLI invocation. It owns
// the store handle and must be closed on every exit path.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    storage.Store
	failures *failurelog.File
	events   *memorypublisher.Publisher
	pubsub   *gcppublisher.Publisher
	engine   *crawler.Engine
	api      *api.Server
}

// Report is the combined view printed by the stats command.
type Report struct {
	crawler.StoreStats
	Failures int `json:"failures"`
}

type options struct {
	fetcher crawler.Fetcher
	store   storage.Store
}

// Option customizes New.
type Option func(*options)

// WithFetcher replaces the colly transport beneath the resilient fetcher.
func WithFetcher(f crawler.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithStore uses an already opened store instead of opening one from config.
func WithStore(s storage.Store) Option {
	return func(o *options) { o.store = s }
}

// New wires every service from cfg. It fails fast and releases anything it
// already opened when a later step fails.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger.Info("initializing application services",
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("api_base_url", cfg.API.BaseURL),
		zap.Int("server_port", cfg.Server.Port),
		zap.Bool("pubsub_enabled", cfg.PubSub.Enabled),
	)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		failures: failurelog.New(cfg.FailureLog.Path),
		events:   memorypublisher.New(cfg.PubSub.RecentEvents),
	}

	a.store = o.store
	if a.store == nil {
		store, err := storage.Open(ctx, cfg.StorageConfig())
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = store
	}

	if err := a.wire(ctx, o); err != nil {
		return nil, errors.Join(err, a.Close())
	}
	logger.Info("application services initialized")
	return a, nil
}

func (a *App) wire(ctx context.Context, o options) error {
	var publisher crawler.Publisher = a.events
	if a.cfg.PubSub.Enabled {
		pub, err := gcppublisher.Connect(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return err
		}
		a.pubsub = pub
		publisher = fanout{a.events, pub}
	}

	transport := o.fetcher
	if transport == nil {
		transport = collyfetcher.New(collyfetcher.Config{
			UserAgent:   a.cfg.API.UserAgent,
			Timeout:     a.cfg.API.Timeout,
			MaxBodySize: a.cfg.API.MaxBodyBytes,
		})
	}
	clock := system.New()
	resilient, err := crawler.NewResilientFetcher(transport, clock, a.cfg.RetryPolicy(), a.logger.Named("fetcher"))
	if err != nil {
		return fmt.Errorf("build fetcher: %w", err)
	}
	resolver, err := crawler.NewResolver(resilient, a.cfg.API.BaseURL, a.logger.Named("resolver"))
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}
	a.engine, err = crawler.NewEngine(a.cfg.CrawlerConfig(), crawler.Dependencies{
		Store:     a.store,
		Resolver:  resolver,
		Failures:  a.failures,
		Publisher: publisher,
		Sleeper:   clock,
		Clock:     clock,
		IDs:       uuid.New(),
	}, a.logger.Named("engine"))
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	a.api = api.NewServer(api.Dependencies{
		Store:    a.store,
		Failures: a.failures,
		Events:   a.events,
	}, api.Options{
		APIKey:         a.cfg.Server.APIKey,
		RequestTimeout: a.cfg.Server.RequestTimeout,
	}, a.logger.Named("api"))
	return nil
}

// Crawl runs the frontier loop, serving the ops API alongside it when a port
// is configured. An API failure stops the crawl.
func (a *App) Crawl(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverDone := make(chan error, 1)
	if a.cfg.Server.Port > 0 {
		addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
		go func() {
			err := api.ListenAndServe(ctx, addr, a.api.Handler(), a.logger.Named("api"))
			if err != nil {
				a.logger.Error("ops api failed", zap.Error(err))
				cancel()
			}
			serverDone <- err
		}()
	} else {
		serverDone <- nil
	}

	runErr := a.engine.Run(ctx)
	cancel()
	// The engine only sees the cancellation, so the API error wins.
	if serverErr := <-serverDone; serverErr != nil {
		return fmt.Errorf("ops api: %w", serverErr)
	}
	return runErr
}

// Seed resolves and stores the named players.
func (a *App) Seed(ctx context.Context, usernames []string) (crawler.PassStats, error) {
	return a.engine.Seed(ctx, usernames)
}

// Frontier returns up to limit frontier usernames.
func (a *App) Frontier(ctx context.Context, limit int) ([]string, error) {
	usernames, err := a.store.Frontier(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("select frontier: %w", err)
	}
	return usernames, nil
}

// Stats reports store counts plus the failure-log size.
func (a *App) Stats(ctx context.Context) (Report, error) {
	st, err := a.store.Stats(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("store stats: %w", err)
	}
	n, err := a.failures.Count()
	if err != nil {
		return Report{}, err
	}
	return Report{StoreStats: st, Failures: n}, nil
}

// Migrate applies the embedded schema migrations to the store.
func (a *App) Migrate(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

// Events returns the retained player.stored events.
func (a *App) Events() []memorypublisher.PublishedMessage {
	return a.events.Messages()
}

// Handler exposes the ops API handler.
func (a *App) Handler() *api.Server {
	return a.api
}

// Close releases the store and the Pub/Sub client.
func (a *App) Close() error {
	a.logger.Info("shutting down application services")
	var errs []error
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			errs = append(errs, err)
		}
		a.pubsub = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		a.store = nil
	}
	return errors.Join(errs...)
}

// fanout publishes to every publisher and returns the last ID.
type fanout []crawler.Publisher

func (f fanout) Publish(ctx context.Context, topic string, payload any) (string, error) {
	var (
		id   string
		errs []error
	)
	for _, p := range f {
		got, err := p.Publish(ctx, topic, payload)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		id = got
	}
	return id, errors.Join(errs...)
}
