// Package domain provides the broker capability and the error taxonomy shared by all modules.
package domain

// BrokerClient defines broker-agnostic trading and portfolio operations.
// The paper ledger implements it; a live trade-execution client is an external
// collaborator that only has to satisfy this interface.
type BrokerClient interface {
	// GetQuote returns the current price for a symbol.
	// Fails with ErrQuoteUnavailable when no price can be obtained.
	GetQuote(symbol string) (float64, error)

	// MarketBuy places a market buy order.
	// Fails with ErrInsufficientFunds or ErrOrderRejected.
	MarketBuy(symbol string, quantity float64) (*OrderReceipt, error)

	// MarketSell places a market sell order.
	// Fails with ErrInsufficientShares or ErrOrderRejected.
	MarketSell(symbol string, quantity float64) (*OrderReceipt, error)

	// GetPositions lists currently held positions
	GetPositions() ([]BrokerPosition, error)
}

// CashProvider exposes an account cash balance.
// Only the paper ledger implements it; snapshots report zero cash without one.
type CashProvider interface {
	GetCash() float64
}

// QuoteProvider is the read-only slice of BrokerClient
type QuoteProvider interface {
	GetQuote(symbol string) (float64, error)
}

// Trader places market orders
type Trader interface {
	MarketBuy(symbol string, quantity float64) (*OrderReceipt, error)
	MarketSell(symbol string, quantity float64) (*OrderReceipt, error)
}
