package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LoriKarikari/pulse/internal/state"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect monitored projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Long:  `List all projects that have received at least one event.`,
	RunE:  runProjectList,
}

func init() {
	projectCmd.AddCommand(projectListCmd)
	rootCmd.AddCommand(projectCmd)
}

func runProjectList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := state.New(ctx, cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	projects, err := store.ListProjects(ctx)
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		fmt.Println("No projects yet")
		return nil
	}

	fmt.Printf("%-6s  %-25s  %s\n", "ID", "NAME", "REPOSITORY")
	fmt.Println("------  -------------------------  ----------")
	for _, p := range projects {
		fmt.Printf("%-6d  %-25s  %s\n", p.ID, p.Name, p.RepositoryURL)
	}

	return nil
}
