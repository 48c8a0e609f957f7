package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LoriKarikari/pulse/internal/ingest"
	"github.com/LoriKarikari/pulse/internal/server"
	"github.com/LoriKarikari/pulse/internal/state"
	"github.com/LoriKarikari/pulse/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook ingestion server",
	Long:  `Start the HTTP server that receives CI provider webhooks and records pipelines and deployments.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	statePath := cfg.State.Path

	if err := os.MkdirAll(filepath.Dir(statePath), 0o750); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := state.New(ctx, statePath)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer store.Close()

	tp, err := telemetry.New()
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	tp.SetGlobal()
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", err))
		}
	}()

	ing := ingest.New(store, logger, tp.Metrics)

	srv := server.New(cfg.Server.Port, ing, cfg.Webhook, tp, logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
	}()

	logger.Info("server started", slog.Int("port", cfg.Server.Port))

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
