package domain

import (
	"fmt"
	"strings"
	"time"
)

// Broker-agnostic types shared by the paper ledger and any live backend

// Side is the direction of an order
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is buy or sell
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// BrokerPosition represents a held position as reported by the broker
type BrokerPosition struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AverageCost float64 `json:"average_cost"`
}

// OrderReceipt is returned for every executed market order
type OrderReceipt struct {
	OrderID    string    `json:"order_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Notional returns price * quantity
func (r *OrderReceipt) Notional() float64 {
	return r.Price * r.Quantity
}

// NormalizeSymbol trims and uppercases a ticker symbol.
// Empty symbols and symbols containing whitespace are rejected with ErrUnknownSymbol.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return "", &SymbolError{Symbol: symbol}
	}
	return s, nil
}

// SymbolError reports a symbol that cannot be traded
type SymbolError struct {
	Symbol string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownSymbol, e.Symbol)
}

// Unwrap lets errors.Is match ErrUnknownSymbol
func (e *SymbolError) Unwrap() error {
	return ErrUnknownSymbol
}
