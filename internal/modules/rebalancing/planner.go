// Package rebalancing turns target allocations into trade legs and executes them.
package rebalancing

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/tracker/internal/domain"
	"github.com/aristath/tracker/internal/modules/portfolio"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// DefaultDustThreshold is the smallest leg notional worth trading
const DefaultDustThreshold = 10.0

// weightSumTolerance is how far the weight total may drift from 1 before a warning is logged
const weightSumTolerance = 1e-6

// ErrInvalidRequest is returned for malformed rebalance inputs
var ErrInvalidRequest = errors.New("invalid rebalance request")

// Leg is one trade of a rebalance plan
type Leg struct {
	Symbol   string      `json:"symbol"`
	Side     domain.Side `json:"side"`
	Quantity float64     `json:"quantity"`
}

// Notional returns the leg value at price
func (l Leg) Notional(price float64) float64 {
	return l.Quantity * price
}

// Plan is an ordered list of legs, in the caller's symbol order
type Plan []Leg

// Planner computes rebalance plans from a snapshot. It never trades.
type Planner struct {
	dustThreshold float64
	log           zerolog.Logger
}

// NewPlanner creates a planner that drops legs whose notional is below dustThreshold.
// A non-positive threshold falls back to DefaultDustThreshold.
func NewPlanner(dustThreshold float64, log zerolog.Logger) *Planner {
	if dustThreshold <= 0 {
		dustThreshold = DefaultDustThreshold
	}
	return &Planner{
		dustThreshold: dustThreshold,
		log:           log.With().Str("service", "rebalance_planner").Logger(),
	}
}

// GeneratePlan computes the legs that move the snapshot toward weights.
//
// weights are fractions of the investable equity, parallel to symbols.
// Prices come from the snapshot only; a symbol with no positive price there is skipped.
// Weights need not sum to 1: any remainder stays in cash and an over-allocation
// surfaces as insufficient funds when the plan is executed.
func (p *Planner) GeneratePlan(
	snapshot *portfolio.Snapshot,
	symbols []string,
	weights []float64,
	cashBufferPct float64,
) (Plan, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("%w: snapshot is required", ErrInvalidRequest)
	}
	if len(symbols) != len(weights) {
		return nil, fmt.Errorf("%w: %d symbols but %d weights", ErrInvalidRequest, len(symbols), len(weights))
	}
	if math.IsNaN(cashBufferPct) || cashBufferPct < 0 || cashBufferPct > 100 {
		return nil, fmt.Errorf("%w: cash buffer %v outside [0, 100]", ErrInvalidRequest, cashBufferPct)
	}
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: weight %v for %s", ErrInvalidRequest, w, symbols[i])
		}
	}

	if total := floats.Sum(weights); len(weights) > 0 && math.Abs(total-1) > weightSumTolerance {
		p.log.Warn().
			Float64("weight_sum", total).
			Msg("Target weights do not sum to 1")
	}

	investable := snapshot.Equity * (1 - cashBufferPct/100)

	plan := make(Plan, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for i, raw := range symbols {
		symbol, err := domain.NormalizeSymbol(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if seen[symbol] {
			p.log.Warn().Str("symbol", symbol).Msg("Duplicate target symbol ignored")
			continue
		}
		seen[symbol] = true

		price := snapshot.Price(symbol)
		if price <= 0 {
			p.log.Debug().Str("symbol", symbol).Msg("No price in snapshot, skipping")
			continue
		}

		desired := weights[i] * investable
		delta := desired/price - snapshot.Quantity(symbol)
		if math.Abs(delta)*price < p.dustThreshold {
			continue
		}

		side := domain.SideBuy
		if delta < 0 {
			side = domain.SideSell
		}
		plan = append(plan, Leg{Symbol: symbol, Side: side, Quantity: math.Abs(delta)})
	}

	p.log.Info().
		Float64("investable", investable).
		Int("targets", len(symbols)).
		Int("legs", len(plan)).
		Msg("Rebalance plan generated")

	return plan, nil
}
