package monitor

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/tracker/internal/database"
	"github.com/aristath/tracker/internal/storage"
)

// Store persists the watch registry as a whole
type Store interface {
	// Load returns the registry keyed by symbol, empty when nothing is stored
	Load() (map[string]WatchConfig, error)
	// Save replaces the stored registry
	Save(configs map[string]WatchConfig) error
}

// FileStore keeps the registry in a JSON object of symbol to config
type FileStore struct {
	file *storage.JSONFile
}

// NewFileStore creates a JSON file store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{file: storage.NewJSONFile(path)}
}

// Load reads the registry file
func (s *FileStore) Load() (map[string]WatchConfig, error) {
	configs := make(map[string]WatchConfig)
	if _, err := s.file.Read(&configs); err != nil {
		return nil, err
	}
	if configs == nil {
		configs = make(map[string]WatchConfig)
	}
	return configs, nil
}

// Save overwrites the registry file
func (s *FileStore) Save(configs map[string]WatchConfig) error {
	return s.file.Write(configs)
}

// SQLiteStore keeps the registry in the watch_configs table
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore creates a store on a migrated tracker database
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const watchColumns = `symbol, quantity, stop_loss_pct, take_profit_pct, entry_price, is_active, created_at, last_checked_at`

// Load reads every row of watch_configs
func (s *SQLiteStore) Load() (map[string]WatchConfig, error) {
	rows, err := s.db.Conn().Query("SELECT " + watchColumns + " FROM watch_configs")
	if err != nil {
		return nil, fmt.Errorf("failed to load watch configs: %w", err)
	}
	defer rows.Close()

	configs := make(map[string]WatchConfig)
	for rows.Next() {
		var c WatchConfig
		var active int
		var createdAt, lastCheckedAt string
		err := rows.Scan(&c.Symbol, &c.Quantity, &c.StopLossPct, &c.TakeProfitPct,
			&c.EntryPrice, &active, &createdAt, &lastCheckedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch config: %w", err)
		}
		c.IsActive = active != 0
		if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at for %s: %w", c.Symbol, err)
		}
		if c.LastCheckedAt, err = time.Parse(time.RFC3339Nano, lastCheckedAt); err != nil {
			return nil, fmt.Errorf("failed to parse last_checked_at for %s: %w", c.Symbol, err)
		}
		configs[c.Symbol] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watch configs: %w", err)
	}

	return configs, nil
}

// Save replaces all rows in one transaction
func (s *SQLiteStore) Save(configs map[string]WatchConfig) error {
	symbols := make([]string, 0, len(configs))
	for symbol := range configs {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	return database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM watch_configs`); err != nil {
			return fmt.Errorf("failed to clear watch configs: %w", err)
		}

		for _, symbol := range symbols {
			c := configs[symbol]
			active := 0
			if c.IsActive {
				active = 1
			}
			_, err := tx.Exec(
				"INSERT INTO watch_configs ("+watchColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
				symbol, c.Quantity, c.StopLossPct, c.TakeProfitPct, c.EntryPrice, active,
				c.CreatedAt.UTC().Format(time.RFC3339Nano),
				c.LastCheckedAt.UTC().Format(time.RFC3339Nano),
			)
			if err != nil {
				return fmt.Errorf("failed to save watch config %s: %w", symbol, err)
			}
		}
		return nil
	})
}
