package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/tracker/internal/database"
	"github.com/aristath/tracker/internal/storage"
)

// Store persists the full ledger state.
// Load returns (nil, nil) when nothing has been stored yet.
type Store interface {
	Load() (*State, error)
	Save(state State) error
}

// FileStore keeps the ledger in a JSON file that is atomically replaced on every save
type FileStore struct {
	file *storage.JSONFile
}

// NewFileStore creates a JSON file store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{file: storage.NewJSONFile(path)}
}

// Load reads the ledger file
func (s *FileStore) Load() (*State, error) {
	var state State
	found, err := s.file.Read(&state)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if state.Holdings == nil {
		state.Holdings = make(map[string]Holding)
	}
	return &state, nil
}

// Save overwrites the ledger file
func (s *FileStore) Save(state State) error {
	return s.file.Write(state)
}

// SQLiteStore keeps the ledger in the paper_account and paper_holdings tables
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore creates a store on a migrated tracker database
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load reads the account row and all holdings
func (s *SQLiteStore) Load() (*State, error) {
	var cash float64
	err := s.db.Conn().QueryRow(`SELECT cash FROM paper_account WHERE id = 1`).Scan(&cash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load paper account: %w", err)
	}

	rows, err := s.db.Conn().Query(`SELECT symbol, quantity, average_cost FROM paper_holdings`)
	if err != nil {
		return nil, fmt.Errorf("failed to load paper holdings: %w", err)
	}
	defer rows.Close()

	state := &State{Cash: cash, Holdings: make(map[string]Holding)}
	for rows.Next() {
		var symbol string
		var h Holding
		if err := rows.Scan(&symbol, &h.Quantity, &h.AverageCost); err != nil {
			return nil, fmt.Errorf("failed to scan paper holding: %w", err)
		}
		state.Holdings[symbol] = h
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate paper holdings: %w", err)
	}

	return state, nil
}

// Save replaces the account row and all holdings in one transaction
func (s *SQLiteStore) Save(state State) error {
	return database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO paper_account (id, cash, updated_at) VALUES (1, ?, ?)
			ON CONFLICT(id) DO UPDATE SET cash = excluded.cash, updated_at = excluded.updated_at
		`, state.Cash, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to save paper account: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM paper_holdings`); err != nil {
			return fmt.Errorf("failed to clear paper holdings: %w", err)
		}

		for _, symbol := range state.Symbols() {
			h := state.Holdings[symbol]
			_, err := tx.Exec(
				`INSERT INTO paper_holdings (symbol, quantity, average_cost) VALUES (?, ?, ?)`,
				symbol, h.Quantity, h.AverageCost,
			)
			if err != nil {
				return fmt.Errorf("failed to save holding %s: %w", symbol, err)
			}
		}

		return nil
	})
}
