package cli

import "github.com/spf13/cobra"

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts",
	Long:  `Commands for creating accounts and managing their webhook tokens.`,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}
