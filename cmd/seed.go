package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "seed USERNAME...",
		Short: "Resolve and store the named players",
		Long: `Bootstraps the store: the frontier is derived from stored games, so an
empty store needs at least one seeded player before crawl has work to do.
Usernames that are already stored are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := state.requireApp()
			if err != nil {
				return err
			}
			stats, err := a.Seed(cmd.Context(), args)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
