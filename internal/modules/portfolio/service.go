// Package portfolio builds point-in-time valuations of the account.
package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/tracker/internal/domain"
	"github.com/aristath/tracker/internal/utils"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Position is a held position valued at the current quote
type Position struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AverageCost float64 `json:"average_cost"`
	MarketPrice float64 `json:"market_price"`
	MarketValue float64 `json:"market_value"`
}

// SkippedPosition is a holding left out of the snapshot because it could not be priced
type SkippedPosition struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Reason   string  `json:"reason"`
}

// Snapshot is an ephemeral valuation of the account. It is never persisted.
type Snapshot struct {
	Positions       []Position        `json:"positions"`
	Skipped         []SkippedPosition `json:"skipped,omitempty"`
	Cash            float64           `json:"cash"`
	PositionsValue  float64           `json:"positions_value"`
	Equity          float64           `json:"equity"`
	PercentInvested float64           `json:"percent_invested"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

// Price returns the market price of a held symbol, or 0 when it is not in the snapshot
func (s *Snapshot) Price(symbol string) float64 {
	for _, p := range s.Positions {
		if p.Symbol == symbol {
			return p.MarketPrice
		}
	}
	return 0
}

// Quantity returns the held quantity of symbol, or 0
func (s *Snapshot) Quantity(symbol string) float64 {
	for _, p := range s.Positions {
		if p.Symbol == symbol {
			return p.Quantity
		}
	}
	return 0
}

// SnapshotService values the account against live quotes.
//
// Dependencies:
//   - domain.BrokerClient: positions and quotes
//   - domain.CashProvider: cash balance, nil when the backend reports none
type SnapshotService struct {
	broker domain.BrokerClient
	cash   domain.CashProvider
	now    func() time.Time
	log    zerolog.Logger
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(
	broker domain.BrokerClient,
	cash domain.CashProvider,
	log zerolog.Logger,
) *SnapshotService {
	return &SnapshotService{
		broker: broker,
		cash:   cash,
		now:    time.Now,
		log:    log.With().Str("service", "portfolio").Logger(),
	}
}

// GetPortfolioSnapshot prices every held position and totals the account.
// It fails only when positions cannot be listed; a position whose quote fails is
// skipped and reported in Snapshot.Skipped.
func (s *SnapshotService) GetPortfolioSnapshot() (*Snapshot, error) {
	defer utils.OperationTimer("portfolio_snapshot", s.log)()

	held, err := s.broker.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	snapshot := &Snapshot{
		Positions:   make([]Position, 0, len(held)),
		GeneratedAt: s.now(),
	}

	values := make([]float64, 0, len(held))
	for _, pos := range held {
		price, err := s.broker.GetQuote(pos.Symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("Skipping position without quote")
			snapshot.Skipped = append(snapshot.Skipped, SkippedPosition{
				Symbol:   pos.Symbol,
				Quantity: pos.Quantity,
				Reason:   err.Error(),
			})
			continue
		}

		value := price * pos.Quantity
		snapshot.Positions = append(snapshot.Positions, Position{
			Symbol:      pos.Symbol,
			Quantity:    pos.Quantity,
			AverageCost: pos.AverageCost,
			MarketPrice: price,
			MarketValue: value,
		})
		values = append(values, value)
	}

	sort.Slice(snapshot.Positions, func(i, j int) bool {
		return snapshot.Positions[i].Symbol < snapshot.Positions[j].Symbol
	})

	if s.cash != nil {
		snapshot.Cash = s.cash.GetCash()
	}
	snapshot.PositionsValue = floats.Sum(values)
	snapshot.Equity = snapshot.PositionsValue + snapshot.Cash
	if snapshot.Equity > 0 {
		snapshot.PercentInvested = snapshot.PositionsValue / snapshot.Equity * 100
	}

	s.log.Debug().
		Int("positions", len(snapshot.Positions)).
		Int("skipped", len(snapshot.Skipped)).
		Float64("equity", snapshot.Equity).
		Msg("Portfolio snapshot built")

	return snapshot, nil
}
