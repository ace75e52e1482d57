// Package monitor watches registered positions and exits them when a stop-loss
// or take-profit threshold is crossed.
package monitor

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/tracker/internal/domain"
)

// Action is the outcome of evaluating a watched position
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// WatchConfig is a monitored position with its exit thresholds.
// Thresholds are percentages relative to EntryPrice, e.g. -5 and 10.
type WatchConfig struct {
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"`
	StopLossPct   float64   `json:"stop_loss_pct"`
	TakeProfitPct float64   `json:"take_profit_pct"`
	EntryPrice    float64   `json:"entry_price"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}

// NewWatchConfig builds an active watch entered at entryPrice
func NewWatchConfig(symbol string, quantity, stopLossPct, takeProfitPct, entryPrice float64, now time.Time) (*WatchConfig, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if !finite(quantity) || quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %v", domain.ErrOrderRejected, quantity)
	}
	if !finite(entryPrice) || entryPrice <= 0 {
		return nil, fmt.Errorf("%w: %s: invalid entry price %v", domain.ErrQuoteUnavailable, sym, entryPrice)
	}
	if !finite(stopLossPct) || !finite(takeProfitPct) {
		return nil, fmt.Errorf("%w: thresholds must be finite", domain.ErrOrderRejected)
	}

	return &WatchConfig{
		Symbol:        sym,
		Quantity:      quantity,
		StopLossPct:   stopLossPct,
		TakeProfitPct: takeProfitPct,
		EntryPrice:    entryPrice,
		IsActive:      true,
		CreatedAt:     now,
		LastCheckedAt: now,
	}, nil
}

// PctChange returns the move from the entry price to price, in percent
func (c WatchConfig) PctChange(price float64) float64 {
	return (price - c.EntryPrice) / c.EntryPrice * 100
}

// Evaluate classifies the position at price. The stop loss is checked first.
func (c WatchConfig) Evaluate(price float64, now time.Time) Decision {
	pct := c.PctChange(price)

	d := Decision{
		Symbol:       c.Symbol,
		Action:       ActionHold,
		Quantity:     c.Quantity,
		CurrentPrice: price,
		EntryPrice:   c.EntryPrice,
		PctChange:    pct,
		Reason:       "No trigger conditions met",
		CheckedAt:    now,
		WatchedSince: c.CreatedAt,
	}

	switch {
	case pct <= c.StopLossPct:
		d.Action = ActionSell
		d.Reason = fmt.Sprintf("Stop loss triggered: %.2f%% <= %g%%", pct, c.StopLossPct)
	case pct >= c.TakeProfitPct:
		d.Action = ActionSell
		d.Reason = fmt.Sprintf("Take profit triggered: %.2f%% >= %g%%", pct, c.TakeProfitPct)
	}

	return d
}

// Decision is the result of checking one watched position
type Decision struct {
	Symbol       string    `json:"symbol"`
	Action       Action    `json:"action"`
	Quantity     float64   `json:"quantity"`
	CurrentPrice float64   `json:"current_price"`
	EntryPrice   float64   `json:"entry_price"`
	PctChange    float64   `json:"pct_change"`
	Reason       string    `json:"reason"`
	CheckedAt    time.Time `json:"checked_at"`
	// WatchedSince is the CreatedAt of the watch the decision was made for
	WatchedSince time.Time `json:"watched_since"`
}

// decidedFor reports whether d was made for the watch c, and not for one that
// has since been replaced under the same symbol
func (d Decision) decidedFor(c WatchConfig) bool {
	return c.Symbol == d.Symbol &&
		c.CreatedAt.Equal(d.WatchedSince) &&
		c.EntryPrice == d.EntryPrice &&
		c.Quantity == d.Quantity
}

// StatusRow describes one active watch in a status report.
// When the quote failed Error is set and the price fields are zero.
type StatusRow struct {
	Symbol        string     `json:"symbol"`
	Quantity      float64    `json:"quantity"`
	EntryPrice    float64    `json:"entry_price"`
	CurrentPrice  float64    `json:"current_price"`
	PctChange     float64    `json:"pct_change"`
	StopLossPct   float64    `json:"stop_loss"`
	TakeProfitPct float64    `json:"take_profit"`
	LastCheckedAt *time.Time `json:"last_check,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Status summarizes the monitor
type Status struct {
	Running         bool        `json:"running"`
	TotalPositions  int         `json:"total_positions"`
	ActivePositions int         `json:"active_positions"`
	Positions       []StatusRow `json:"positions"`
}

// TradeOutcome is a triggered decision and the result of executing it
type TradeOutcome struct {
	Decision Decision             `json:"decision"`
	Receipt  *domain.OrderReceipt `json:"receipt,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// SymbolFailure is a symbol whose check failed during a cycle
type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// CycleReport is the result of one CheckAllPositions pass
type CycleReport struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Checked    int             `json:"checked"`
	Holds      []Decision      `json:"holds"`
	Trades     []TradeOutcome  `json:"trades"`
	Failures   []SymbolFailure `json:"failures"`
	// PersistError is set when the registry could not be saved at the end of the pass
	PersistError string `json:"persist_error,omitempty"`
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
