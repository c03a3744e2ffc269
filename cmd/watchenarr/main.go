package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amaumene/watchenarr/internal/api"
	"github.com/amaumene/watchenarr/internal/config"
	"github.com/amaumene/watchenarr/internal/controllers"
	"github.com/amaumene/watchenarr/internal/models"
	"github.com/amaumene/watchenarr/internal/scheduler"
	"github.com/amaumene/watchenarr/internal/services/mediaserver"
	"github.com/amaumene/watchenarr/internal/state"
	"github.com/amaumene/watchenarr/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Watchenarr")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Load user exclusions
	exclusions, err := utils.LoadExclusions(cfg.ExclusionsFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load user exclusions, continuing without them")
		exclusions = &utils.Exclusions{}
	}

	// 5. Initialize media server clients
	retry := utils.RetryPolicy{Interval: cfg.RetryDelay}

	sourceClient, err := mediaserver.NewClient(cfg.SourceURL, cfg.SourceAPIKey, retry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize source client: %w", err)
	}
	destClient, err := mediaserver.NewClient(cfg.DestURL, cfg.DestAPIKey, retry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize destination client: %w", err)
	}
	logger.Info("Media server clients initialized")

	// 6. Initialize sync controller
	stateStore := state.NewStore(cfg.StateFile)
	syncCtrl := controllers.NewSyncController(sourceClient, destClient, db, stateStore, exclusions, cfg.DestAdminUser, logger)

	// Run once and exit when no schedule is configured
	if cfg.SyncSchedule == "" {
		return syncCtrl.Run(context.Background())
	}

	// 7. Daemon mode: scheduler + status API
	sched := scheduler.NewScheduler(syncCtrl, cfg.SyncSchedule, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	server := api.NewServer(cfg, db, sched, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 8. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Watchenarr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Watchenarr stopped")
	return nil
}
