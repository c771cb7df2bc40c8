package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFrontierCmd(state *rootState) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "frontier",
		Short: "Print a random sample of the current frontier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be > 0")
			}
			a, err := state.requireApp()
			if err != nil {
				return err
			}
			usernames, err := a.Frontier(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, u := range usernames {
				if _, err := fmt.Fprintln(out, u); err != nil {
					return fmt.Errorf("write frontier: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum usernames to print")
	return cmd
}
