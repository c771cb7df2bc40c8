package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newStatsCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print player, game, frontier and failure-log counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.requireApp()
			if err != nil {
				return err
			}
			report, err := a.Stats(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
