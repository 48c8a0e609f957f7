package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LoriKarikari/pulse/internal/state"
)

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE:  runAccountList,
}

func init() {
	accountCmd.AddCommand(accountListCmd)
}

func runAccountList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := state.New(ctx, cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		return err
	}

	if len(profiles) == 0 {
		fmt.Println("No accounts registered")
		return nil
	}

	fmt.Printf("%-20s  %-32s  %s\n", "USERNAME", "WEBHOOK TOKEN", "CREATED")
	fmt.Println("--------------------  --------------------------------  -------")
	for _, p := range profiles {
		fmt.Printf("%-20s  %-32s  %s\n", p.Username, p.WebhookToken, p.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}
