package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stale/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the incremental cache and assembled modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetBool("output")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{}

			switch {
			case all:
				opts.Cache = true
				opts.Output = true
			case output:
				opts.Output = true
			default:
				// Default behavior: clean the incremental cache
				opts.Cache = true
			}

			return c.app.Clean(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolP("output", "o", false, "Remove assembled module outputs")
	cmd.Flags().BoolP("all", "a", false, "Remove the cache and the module outputs")

	return cmd
}
