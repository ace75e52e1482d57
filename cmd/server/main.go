// Package main is the entry point for the position tracker.
// It serves the paper ledger, portfolio, rebalancing and monitor APIs and runs
// the position monitor in the background.
//
// Startup sequence:
// 1. Load configuration from environment variables (.env supported)
// 2. Initialize logging
// 3. Wire all dependencies via the DI container
// 4. Optionally start periodic monitoring (MONITOR_AUTOSTART)
// 5. Serve HTTP until SIGINT/SIGTERM, then shut down gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/tracker/internal/config"
	"github.com/aristath/tracker/internal/di"
	"github.com/aristath/tracker/internal/server"
	"github.com/aristath/tracker/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("storage", cfg.StorageBackend).
		Bool("paper", cfg.PaperMode).
		Msg("Starting tracker")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	if cfg.MonitorAutostart {
		if err := container.Scheduler.StartMonitoring(cfg.MonitorInterval); err != nil {
			log.Error().Err(err).Msg("Failed to start monitoring")
		}
	}

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop monitoring before the server so no cycle trades during shutdown
	if drained := container.Scheduler.StopMonitoring(); !drained {
		log.Warn().Msg("Monitoring cycle still running at shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if _, err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close storage")
	}

	log.Info().Msg("Server stopped")
}
