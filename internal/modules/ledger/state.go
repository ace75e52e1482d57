// Package ledger implements the paper brokerage: a simulated cash account with holdings.
package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Holding is a position held in the paper account
type Holding struct {
	Quantity    float64 `json:"quantity"`
	AverageCost float64 `json:"average_cost"`
}

// State is the persisted form of the paper account
type State struct {
	Cash     float64            `json:"cash"`
	Holdings map[string]Holding `json:"holdings"`
}

// Validate rejects states that break the ledger invariants
func (s State) Validate() error {
	if s.Cash < 0 {
		return fmt.Errorf("negative cash balance %.2f", s.Cash)
	}
	for symbol, h := range s.Holdings {
		if h.Quantity < 0 {
			return fmt.Errorf("negative quantity %v for %s", h.Quantity, symbol)
		}
		if h.AverageCost < 0 {
			return fmt.Errorf("negative average cost %v for %s", h.AverageCost, symbol)
		}
	}
	return nil
}

// Symbols returns held symbols in sorted order
func (s State) Symbols() []string {
	symbols := make([]string, 0, len(s.Holdings))
	for symbol := range s.Holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

type position struct {
	quantity    decimal.Decimal
	averageCost decimal.Decimal
}

// account is the in-memory ledger; all arithmetic is done in decimal
type account struct {
	cash     decimal.Decimal
	holdings map[string]position
}

func newAccount(cash float64) account {
	return account{
		cash:     decimal.NewFromFloat(cash),
		holdings: make(map[string]position),
	}
}

func accountFromState(s State) account {
	a := newAccount(s.Cash)
	for symbol, h := range s.Holdings {
		// Zero-quantity rows are leftovers, never valid holdings
		if h.Quantity <= 0 {
			continue
		}
		a.holdings[symbol] = position{
			quantity:    decimal.NewFromFloat(h.Quantity),
			averageCost: decimal.NewFromFloat(h.AverageCost),
		}
	}
	return a
}

func (a account) clone() account {
	c := account{
		cash:     a.cash,
		holdings: make(map[string]position, len(a.holdings)),
	}
	for symbol, p := range a.holdings {
		c.holdings[symbol] = p
	}
	return c
}

func (a account) toState() State {
	s := State{
		Cash:     a.cash.InexactFloat64(),
		Holdings: make(map[string]Holding, len(a.holdings)),
	}
	for symbol, p := range a.holdings {
		s.Holdings[symbol] = Holding{
			Quantity:    p.quantity.InexactFloat64(),
			AverageCost: p.averageCost.InexactFloat64(),
		}
	}
	return s
}
