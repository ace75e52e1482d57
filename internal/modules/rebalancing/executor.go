package rebalancing

import (
	"github.com/aristath/tracker/internal/domain"
	"github.com/aristath/tracker/internal/utils"
	"github.com/rs/zerolog"
)

// LegResult is the outcome of one executed leg
type LegResult struct {
	Leg
	Receipt *domain.OrderReceipt `json:"receipt,omitempty"`
	Error   string               `json:"error,omitempty"`
	Err     error                `json:"-"`
}

// Succeeded reports whether the leg was filled
func (r LegResult) Succeeded() bool {
	return r.Err == nil
}

// Executor places the legs of a plan
type Executor struct {
	trader domain.Trader
	log    zerolog.Logger
}

// NewExecutor creates an executor that trades through trader
func NewExecutor(trader domain.Trader, log zerolog.Logger) *Executor {
	return &Executor{
		trader: trader,
		log:    log.With().Str("service", "rebalance_executor").Logger(),
	}
}

// Execute runs every leg in plan order. A failed leg is recorded and the
// remaining legs still run.
func (e *Executor) Execute(plan Plan) []LegResult {
	timer := utils.NewTimer("rebalance_execute", e.log)
	results := make([]LegResult, 0, len(plan))
	failed := 0

	for _, leg := range plan {
		var receipt *domain.OrderReceipt
		var err error
		if leg.Side == domain.SideBuy {
			receipt, err = e.trader.MarketBuy(leg.Symbol, leg.Quantity)
		} else {
			receipt, err = e.trader.MarketSell(leg.Symbol, leg.Quantity)
		}

		result := LegResult{Leg: leg, Receipt: receipt}
		if err != nil {
			err = &domain.TradeExecutionError{Symbol: leg.Symbol, Action: leg.Side, Err: err}
			result.Err = err
			result.Error = err.Error()
			failed++
			e.log.Warn().Err(err).Str("symbol", leg.Symbol).Msg("Rebalance leg failed")
		}
		results = append(results, result)
	}

	e.log.Info().
		Int("legs", len(plan)).
		Int("failed", failed).
		Dur("duration", timer.Stop()).
		Msg("Rebalance executed")

	return results
}
