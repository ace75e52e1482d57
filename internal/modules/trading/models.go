package trading

import (
	"fmt"
	"time"

	"github.com/aristath/tracker/internal/domain"
)

// Trade sources
const (
	SourceManual    = "manual"
	SourceMonitor   = "monitor"
	SourceRebalance = "rebalance"
)

// Trade is an executed order as recorded in the trade history
type Trade struct {
	ID         int64       `json:"id"`
	OrderID    string      `json:"order_id"`
	Symbol     string      `json:"symbol"`
	Side       domain.Side `json:"side"`
	Quantity   float64     `json:"quantity"`
	Price      float64     `json:"price"`
	Source     string      `json:"source"`
	Mode       string      `json:"mode"`
	ExecutedAt time.Time   `json:"executed_at"`
}

// Value returns quantity * price
func (t Trade) Value() float64 {
	return t.Quantity * t.Price
}

// Validate checks the trade before it is stored
func (t Trade) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !t.Side.Valid() {
		return fmt.Errorf("invalid side %q", t.Side)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %v", t.Quantity)
	}
	if t.Price <= 0 {
		return fmt.Errorf("price must be positive, got %v", t.Price)
	}
	return nil
}

func tradeFromReceipt(receipt *domain.OrderReceipt, source, mode string) Trade {
	return Trade{
		OrderID:    receipt.OrderID,
		Symbol:     receipt.Symbol,
		Side:       receipt.Side,
		Quantity:   receipt.Quantity,
		Price:      receipt.Price,
		Source:     source,
		Mode:       mode,
		ExecutedAt: receipt.ExecutedAt,
	}
}
