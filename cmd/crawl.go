package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs the frontier loop.
func newCrawlCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run the frontier crawl",
		Long: `Repeatedly selects usernames that appear on stored games but have no
player row, resolves each one against the chess.com API and stores it with
its games. Unresolvable usernames are appended to the failure log and retried
on later passes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.requireApp()
			if err != nil {
				return err
			}
			err = a.Crawl(cmd.Context())
			if errors.Is(err, context.Canceled) {
				state.logger.Info("crawl interrupted")
				return nil
			}
			if err != nil {
				return fmt.Errorf("run crawler: %w", err)
			}
			state.logger.Info("crawl command finished", zap.String("status", "ok"))
			return nil
		},
	}
	cmd.Flags().Int("batch-size", 0, "usernames selected per pass (overrides crawler.batch_size)")
	cmd.Flags().Int("max-passes", 0, "stop after N passes; 0 runs until interrupted")
	cmd.Flags().Bool("stop-when-exhausted", false, "stop when a pass finds an empty frontier")
	return cmd
}
