package ledger

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/aristath/tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// QuoteFunc prices a symbol
type QuoteFunc func(symbol string) (float64, error)

const (
	quoteBase    = 100
	quoteBuckets = 500
)

// DeterministicQuote returns a reproducible pseudo-price for a symbol:
// 100 + (fnv32a(symbol) mod 500) / 10, rounded to 2 decimals.
// The result depends only on the symbol string, so it is stable across calls and restarts.
func DeterministicQuote(symbol string) (float64, error) {
	if symbol == "" {
		return 0, fmt.Errorf("%w: empty symbol", domain.ErrQuoteUnavailable)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	bucket := int64(h.Sum32() % quoteBuckets)

	price := decimal.NewFromInt(quoteBase).
		Add(decimal.NewFromInt(bucket).Div(decimal.NewFromInt(10))).
		Round(2)

	return price.InexactFloat64(), nil
}

// checkQuote rejects prices that cannot be traded at
func checkQuote(symbol string, price float64, err error) (float64, error) {
	if err != nil {
		if errors.Is(err, domain.ErrQuoteUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrQuoteUnavailable, symbol, err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("%w: %s: invalid price %v", domain.ErrQuoteUnavailable, symbol, price)
	}
	return price, nil
}
