package cli

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/LoriKarikari/pulse/internal/state"
)

var pipelineFlags struct {
	projectID int64
	limit     int
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Inspect pipeline runs",
}

var pipelineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pipeline runs for a project",
	RunE:  runPipelineList,
}

func init() {
	pipelineListCmd.Flags().Int64Var(&pipelineFlags.projectID, "project", 0, "Project ID")
	pipelineListCmd.Flags().IntVar(&pipelineFlags.limit, "limit", 20, "Maximum number of runs to show")
	_ = pipelineListCmd.MarkFlagRequired("project")

	pipelineCmd.AddCommand(pipelineListCmd)
	rootCmd.AddCommand(pipelineCmd)
}

func runPipelineList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := state.New(ctx, cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	pipelines, err := store.ListPipelines(ctx, pipelineFlags.projectID, pipelineFlags.limit)
	if err != nil {
		return err
	}

	if len(pipelines) == 0 {
		fmt.Println("No pipeline runs yet")
		return nil
	}

	fmt.Printf("%-6s  %-10s  %-15s  %-8s  %-9s  %s\n", "RUN", "STATUS", "BRANCH", "COMMIT", "DURATION", "STARTED")
	fmt.Println("------  ----------  ---------------  --------  ---------  -------")
	for _, p := range pipelines {
		duration := "-"
		if p.DurationSeconds != nil {
			duration = fmt.Sprintf("%ds", *p.DurationSeconds)
		}
		fmt.Printf("%-6d  %-10s  %-15s  %-8s  %-9s  %s\n",
			p.RunNumber,
			p.Status,
			p.Branch,
			lo.Substring(p.CommitHash, 0, 8),
			duration,
			p.StartedAt.Format("2006-01-02 15:04:05"),
		)
	}

	return nil
}
