package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/stale/internal/app"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the files that changed since the last build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Build(cmd.Context(), buildOptions(cmd))
		},
	}
	addBuildFlags(cmd)
	return cmd
}

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever sources change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Watch(cmd.Context(), buildOptions(cmd))
		},
	}
	addBuildFlags(cmd)
	return cmd
}

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which files the next build would compile and why",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Status(cmd.Context())
		},
	}
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("no-cache", "n", false, "Discard the incremental cache and rebuild everything")
	cmd.Flags().Bool("fallback", true, "Rebuild from scratch when the cache is inconsistent")
}

func buildOptions(cmd *cobra.Command) app.BuildOptions {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	fallback, _ := cmd.Flags().GetBool("fallback")
	return app.BuildOptions{
		NoCache:  noCache,
		Fallback: fallback,
	}
}
