package trading

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aristath/tracker/internal/domain"
	"github.com/rs/zerolog"
)

// TradeRepositoryInterface defines the interface for trade persistence
type TradeRepositoryInterface interface {
	// Create inserts a new trade record
	Create(trade Trade) error

	// GetHistory retrieves recent trades, newest first
	GetHistory(limit int) ([]Trade, error)

	// GetBySymbol retrieves recent trades for a symbol, newest first
	GetBySymbol(symbol string, limit int) ([]Trade, error)
}

// Compile-time checks
var (
	_ TradeRepositoryInterface = (*TradeRepository)(nil)
	_ TradeRepositoryInterface = (*MemoryTradeRepository)(nil)
)

const tradesColumns = `id, order_id, symbol, side, quantity, price, source, mode, executed_at`

// TradeRepository stores trades in the trades table
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db,
		log: log.With().Str("repo", "trade").Logger(),
	}
}

// Create inserts a new trade record. A trade whose order_id is already stored is skipped.
func (r *TradeRepository) Create(trade Trade) error {
	if err := trade.Validate(); err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}

	_, err := r.db.Exec(`
		INSERT INTO trades
		(order_id, symbol, side, quantity, price, source, mode, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO NOTHING
	`,
		nullString(trade.OrderID),
		strings.ToUpper(strings.TrimSpace(trade.Symbol)),
		string(trade.Side),
		trade.Quantity,
		trade.Price,
		trade.Source,
		trade.Mode,
		trade.ExecutedAt.UnixMilli(),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}

	r.log.Debug().
		Str("symbol", trade.Symbol).
		Str("side", string(trade.Side)).
		Float64("quantity", trade.Quantity).
		Msg("Trade created")

	return nil
}

// GetHistory retrieves recent trades, newest first
func (r *TradeRepository) GetHistory(limit int) ([]Trade, error) {
	query := "SELECT " + tradesColumns + " FROM trades ORDER BY executed_at DESC, id DESC LIMIT ?"
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade history: %w", err)
	}
	defer rows.Close()

	return r.scanTrades(rows)
}

// GetBySymbol retrieves recent trades for a symbol, newest first
func (r *TradeRepository) GetBySymbol(symbol string, limit int) ([]Trade, error) {
	query := "SELECT " + tradesColumns + " FROM trades WHERE symbol = ? ORDER BY executed_at DESC, id DESC LIMIT ?"
	rows, err := r.db.Query(query, strings.ToUpper(strings.TrimSpace(symbol)), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades by symbol: %w", err)
	}
	defer rows.Close()

	return r.scanTrades(rows)
}

func (r *TradeRepository) scanTrades(rows *sql.Rows) ([]Trade, error) {
	trades := make([]Trade, 0)
	for rows.Next() {
		var trade Trade
		var orderID sql.NullString
		var side string
		var executedAt int64

		err := rows.Scan(&trade.ID, &orderID, &trade.Symbol, &side, &trade.Quantity,
			&trade.Price, &trade.Source, &trade.Mode, &executedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		trade.OrderID = orderID.String
		trade.Side = domain.Side(side)
		trade.ExecutedAt = time.UnixMilli(executedAt)
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}
	return trades, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// DefaultMemoryHistory is the number of trades kept by MemoryTradeRepository
const DefaultMemoryHistory = 500

// MemoryTradeRepository keeps the most recent trades in memory.
// Used with the file storage backend, which has no trade table.
type MemoryTradeRepository struct {
	mu     sync.RWMutex
	trades []Trade
	max    int
	nextID int64
}

// NewMemoryTradeRepository creates a repository holding up to max trades
func NewMemoryTradeRepository(max int) *MemoryTradeRepository {
	if max <= 0 {
		max = DefaultMemoryHistory
	}
	return &MemoryTradeRepository{max: max}
}

// Create appends a trade, evicting the oldest when full
func (r *MemoryTradeRepository) Create(trade Trade) error {
	if err := trade.Validate(); err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if trade.OrderID != "" {
		for _, existing := range r.trades {
			if existing.OrderID == trade.OrderID {
				return nil
			}
		}
	}

	r.nextID++
	trade.ID = r.nextID
	r.trades = append(r.trades, trade)
	if len(r.trades) > r.max {
		r.trades = r.trades[len(r.trades)-r.max:]
	}
	return nil
}

// GetHistory returns up to limit trades, newest first
func (r *MemoryTradeRepository) GetHistory(limit int) ([]Trade, error) {
	return r.collect(limit, func(Trade) bool { return true }), nil
}

// GetBySymbol returns up to limit trades for symbol, newest first
func (r *MemoryTradeRepository) GetBySymbol(symbol string, limit int) ([]Trade, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return r.collect(limit, func(t Trade) bool { return t.Symbol == symbol }), nil
}

func (r *MemoryTradeRepository) collect(limit int, keep func(Trade) bool) []Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Trade, 0)
	for i := len(r.trades) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(r.trades[i]) {
			out = append(out, r.trades[i])
		}
	}
	return out
}
