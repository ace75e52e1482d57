package di

import (
	"errors"
	"fmt"

	"github.com/aristath/tracker/internal/config"
	"github.com/rs/zerolog"
)

// ErrLiveModeUnsupported is returned when paper mode is disabled.
// Live trading needs an external broker client, which this build does not ship.
var ErrLiveModeUnsupported = errors.New("live trading is not available: set TRACKER_PAPER=true")

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open the storage backend
// 2. Build the broker and services
// Monitoring is not started; the caller decides.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	if !cfg.PaperMode {
		return nil, ErrLiveModeUnsupported
	}

	container, err := InitializeStores(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stores: %w", err)
	}

	InitializeServices(container, cfg, log)

	log.Info().
		Str("storage", cfg.StorageBackend).
		Float64("cash", container.PaperBroker.GetCash()).
		Int("monitored", len(container.MonitorService.ListPositions())).
		Msg("Dependencies wired")

	return container, nil
}
