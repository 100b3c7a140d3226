package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"keeper/internal/api"
	"keeper/internal/api/handlers"
	"keeper/internal/app"
	"keeper/pkg/config"
	"keeper/pkg/logger"
	"keeper/pkg/postgres"

	"go.uber.org/zap"
)

// @title Keeper API
// @version 1.0
// @description Customer identity matching and revenue insights for service businesses

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting Keeper service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	a, err := app.New(ctx, cfg, db, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer a.Close()

	// Initialize handlers
	h := api.Handlers{
		Customers: handlers.NewCustomerHandler(a.Ingest, a.Matching, appLogger),
		Matches:   handlers.NewMatchHandler(a.Matching, appLogger),
		Insights:  handlers.NewInsightHandler(a.Insights, a.Consensus, appLogger),
	}
	server := api.SetupRouter(h, a.JWT, cfg.Server, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := server.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := server.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
