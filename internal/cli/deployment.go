package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LoriKarikari/pulse/internal/state"
)

var deploymentFlags struct {
	projectID int64
	limit     int
}

var deploymentCmd = &cobra.Command{
	Use:   "deployment",
	Short: "Inspect deployments",
}

var deploymentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployments for a project",
	RunE:  runDeploymentList,
}

func init() {
	deploymentListCmd.Flags().Int64Var(&deploymentFlags.projectID, "project", 0, "Project ID")
	deploymentListCmd.Flags().IntVar(&deploymentFlags.limit, "limit", 20, "Maximum number of deployments to show")
	_ = deploymentListCmd.MarkFlagRequired("project")

	deploymentCmd.AddCommand(deploymentListCmd)
	rootCmd.AddCommand(deploymentCmd)
}

func runDeploymentList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := state.New(ctx, cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	deployments, err := store.ListDeployments(ctx, deploymentFlags.projectID, deploymentFlags.limit)
	if err != nil {
		return err
	}

	if len(deployments) == 0 {
		fmt.Println("No deployments yet")
		return nil
	}

	fmt.Printf("%-6s  %-12s  %-15s  %-10s  %s\n", "ID", "ENVIRONMENT", "VERSION", "STATUS", "DEPLOYED")
	fmt.Println("------  ------------  ---------------  ----------  --------")
	for _, d := range deployments {
		fmt.Printf("%-6d  %-12s  %-15s  %-10s  %s\n",
			d.ID,
			d.Environment,
			d.Version,
			d.Status,
			d.DeployedAt.Format("2006-01-02 15:04:05"),
		)
	}

	return nil
}
