// Package cmd defines and implements the CLI commands for the chess-graph-crawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/chess-graph-crawler/internal/app"
	"github.com/JakeFAU/chess-graph-crawler/internal/config"
	"github.com/JakeFAU/chess-graph-crawler/internal/crawler"
	"github.com/JakeFAU/chess-graph-crawler/internal/logging"
)

// App defines the application interface that commands use, so tests can
// inject a fake.
type App interface {
	Crawl(ctx context.Context) error
	Seed(ctx context.Context, usernames []string) (crawler.PassStats, error)
	Frontier(ctx context.Context, limit int) ([]string, error)
	Stats(ctx context.Context) (app.Report, error)
	Migrate(ctx context.Context) error
	Close() error
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

// newLogger is swapped in tests to keep output quiet.
var newLogger = logging.New

// rootState carries what PersistentPreRunE builds to the subcommands and to
// Execute, which releases it whether or not the command succeeded.
type rootState struct {
	cfgFile string
	verbose bool
	app     App
	logger  *zap.Logger
}

func (s *rootState) close() error {
	var err error
	if s.app != nil {
		err = s.app.Close()
		s.app = nil
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	return err
}

func (s *rootState) requireApp() (App, error) {
	if s.app == nil {
		return nil, errors.New("application services not initialized")
	}
	return s.app, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chess-graph-crawler",
		Short: "Harvests chess.com players and games by following the player graph.",
		Long: `chess-graph-crawler expands a relational store of chess.com players and
games breadth-first: every username seen on a stored game but not yet stored
as a player is fetched, with its full game history, on the next pass.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(state.cfgFile)
			if err != nil {
				return err
			}
			if err := applyFlagOverrides(cmd, &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(cfg.Logging.Development, state.verbose || cfg.Logging.Verbose)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			state.logger = logger

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			state.app = appInstance
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&state.cfgFile, "config", "", "config file (YAML, TOML or JSON)")
	cmd.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "log at debug level, including backoff sleeps")

	cmd.AddCommand(
		newCrawlCmd(state),
		newSeedCmd(state),
		newFrontierCmd(state),
		newStatsCmd(state),
		newMigrateCmd(state),
	)
	return cmd
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("batch-size") {
		n, err := flags.GetInt("batch-size")
		if err != nil {
			return fmt.Errorf("batch-size: %w", err)
		}
		cfg.Crawler.BatchSize = n
	}
	if flags.Changed("max-passes") {
		n, err := flags.GetInt("max-passes")
		if err != nil {
			return fmt.Errorf("max-passes: %w", err)
		}
		cfg.Crawler.MaxPasses = n
	}
	if flags.Changed("stop-when-exhausted") {
		b, err := flags.GetBool("stop-when-exhausted")
		if err != nil {
			return fmt.Errorf("stop-when-exhausted: %w", err)
		}
		cfg.Crawler.StopWhenExhausted = b
	}
	return nil
}

// execute runs the command tree and always releases the application.
func execute(ctx context.Context, args []string) error {
	state := &rootState{}
	root := newRootCmd(state)
	root.SetArgs(args)
	runErr := root.ExecuteContext(ctx)
	return errors.Join(runErr, state.close())
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the command's
// context, which stops a crawl between usernames or during a backoff sleep.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
