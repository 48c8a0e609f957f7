package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/LoriKarikari/pulse/internal/state"
)

var accountAddCmd = &cobra.Command{
	Use:   "add [username]",
	Short: "Create an account",
	Long:  `Create an account and generate its webhook token. The token is the last path segment of the account's webhook URLs.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAccountAdd,
}

func init() {
	accountCmd.AddCommand(accountAddCmd)
}

func runAccountAdd(cmd *cobra.Command, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	}

	if username == "" {
		err := huh.NewInput().
			Title("Username").
			Value(&username).
			Validate(func(s string) error {
				if s == "" {
					return fmt.Errorf("username is required")
				}
				return nil
			}).
			Run()
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	store, err := state.New(ctx, cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	profile, err := store.CreateProfile(ctx, username)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	fmt.Printf("Created account %q\n", profile.Username)
	fmt.Printf("Webhook token: %s\n", profile.WebhookToken)
	fmt.Printf("GitHub webhook URL:     /hooks/github/%s\n", profile.WebhookToken)
	fmt.Printf("Deployment webhook URL: /hooks/deployments/%s\n", profile.WebhookToken)
	return nil
}
