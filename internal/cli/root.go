package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/LoriKarikari/pulse/internal/config"
	"github.com/LoriKarikari/pulse/internal/logging"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "CI/CD observability dashboard backend",
	Long:  `Pulse ingests build and deploy events from CI providers via webhooks and normalizes them into a unified pipeline and deployment model.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if _, statErr := os.Stat("pulse.yaml"); statErr == nil {
			cfg, err = config.Load("pulse.yaml")
		} else {
			cfg = config.Default()
		}
		if err != nil {
			return err
		}
		logger = logging.New(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
