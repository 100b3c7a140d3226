package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"keeper/internal/app"
	"keeper/pkg/config"
	"keeper/pkg/logger"
	"keeper/pkg/postgres"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var accountFlag string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "keeper-cli",
		Short:        "Operate Keeper matching and insight jobs from the command line",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&accountFlag, "account", "a", "", "account id")

	root.AddCommand(
		newImportCmd(),
		newEmbedCmd(),
		newMatchCmd(),
		newInsightsCmd(),
		newConsensusCmd(),
		newTokenCmd(),
	)
	return root
}

// runWithApp loads configuration, connects to the database and hands the
// wired services to fn.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, accountID uuid.UUID) error) error {
	accountID, err := uuid.Parse(accountFlag)
	if err != nil {
		return fmt.Errorf("invalid --account: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := cmd.Context()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	defer db.Close()

	a, err := app.New(ctx, cfg, db, appLogger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a, accountID)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
