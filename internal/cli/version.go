package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LoriKarikari/pulse/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pulse %s (%s)\n", version.Version(), version.Commit())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
