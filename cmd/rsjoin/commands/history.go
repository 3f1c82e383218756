package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/rsjoin/cmd/rsjoin/handlers"
	"github.com/imamik/rsjoin/internal/cluster"
)

// History returns the command listing recent convergence runs.
func History() *cobra.Command {
	var (
		configPath string
		id         cluster.Identity
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent convergence runs for a cluster",
		Long: `Show recent convergence runs recorded in the run journal.

Examples:
  rsjoin history --project MongoDB --environment Test --role rsmember
  rsjoin history --project MongoDB --environment Test --role rsmember --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.History(cmd.Context(), configPath, id, limit, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&id.Project, "project", "", "Cluster project")
	cmd.Flags().StringVar(&id.Environment, "environment", "", "Cluster environment")
	cmd.Flags().StringVar(&id.Role, "role", "", "Cluster role")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("environment")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}
