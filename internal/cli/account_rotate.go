package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LoriKarikari/pulse/internal/state"
)

var accountRotateCmd = &cobra.Command{
	Use:   "rotate-token <username>",
	Short: "Rotate an account's webhook token",
	Long:  `Generate a fresh webhook token for the account. Webhook URLs built from the old token stop working immediately.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountRotate,
}

func init() {
	accountCmd.AddCommand(accountRotateCmd)
}

func runAccountRotate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := state.New(ctx, cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	token, err := store.RotateWebhookToken(ctx, args[0])
	if err != nil {
		return fmt.Errorf("rotate token: %w", err)
	}

	fmt.Printf("New webhook token for %q: %s\n", args[0], token)
	return nil
}
