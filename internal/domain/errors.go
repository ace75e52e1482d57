package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInsufficientFunds is returned when a buy costs more than the available cash
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientShares is returned when a sell exceeds the held quantity
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrQuoteUnavailable is returned when no price can be obtained for a symbol
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrUnknownSymbol is returned for symbols that cannot be traded
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrOrderRejected is returned when an order is refused before execution
	ErrOrderRejected = errors.New("order rejected")
	// ErrPersistence is returned when state cannot be saved or loaded
	ErrPersistence = errors.New("persistence error")
)

// TradeExecutionError wraps a failure raised while executing an automated or planned trade
type TradeExecutionError struct {
	Symbol string
	Action Side
	Err    error
}

func (e *TradeExecutionError) Error() string {
	return fmt.Sprintf("failed to execute %s for %s: %v", e.Action, e.Symbol, e.Err)
}

func (e *TradeExecutionError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps an error from a trading operation to a response status
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInsufficientShares),
		errors.Is(err, ErrOrderRejected),
		errors.Is(err, ErrUnknownSymbol):
		return http.StatusBadRequest
	case errors.Is(err, ErrQuoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
