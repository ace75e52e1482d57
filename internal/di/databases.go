package di

import (
	"fmt"

	"github.com/aristath/tracker/internal/config"
	"github.com/aristath/tracker/internal/database"
	"github.com/aristath/tracker/internal/modules/ledger"
	"github.com/aristath/tracker/internal/modules/monitor"
	"github.com/aristath/tracker/internal/modules/trading"
	"github.com/rs/zerolog"
)

// InitializeStores opens the storage backend selected by cfg.StorageBackend
func InitializeStores(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	switch cfg.StorageBackend {
	case config.StorageSQLite:
		db, err := database.New(database.Config{
			Path:    cfg.DatabasePath(),
			Profile: database.ProfileLedger,
			Name:    "tracker",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracker database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate tracker database: %w", err)
		}

		container.DB = db
		container.LedgerStore = ledger.NewSQLiteStore(db)
		container.RegistryStore = monitor.NewSQLiteStore(db)
		container.TradeRepo = trading.NewTradeRepository(db.Conn(), log)

		log.Info().Str("path", db.Path()).Msg("Using SQLite storage")

	case config.StorageFile:
		container.LedgerStore = ledger.NewFileStore(cfg.LedgerPath())
		container.RegistryStore = monitor.NewFileStore(cfg.RegistryPath())
		container.TradeRepo = trading.NewMemoryTradeRepository(trading.DefaultMemoryHistory)

		log.Info().
			Str("ledger", cfg.LedgerPath()).
			Str("registry", cfg.RegistryPath()).
			Msg("Using JSON file storage")

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}

	return container, nil
}
