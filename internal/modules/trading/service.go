// Package trading is the single path through which orders reach the broker.
package trading

import (
	"fmt"
	"math"

	"github.com/aristath/tracker/internal/domain"
	"github.com/rs/zerolog"
)

// TradeRequest represents a request to execute a trade
type TradeRequest struct {
	Symbol   string      `json:"symbol"`
	Side     domain.Side `json:"side"`
	Quantity float64     `json:"quantity"`
	Source   string      `json:"source"`
}

// TradingService validates, executes and records trades.
//
// Manual trades from the API, exits triggered by the position monitor and
// rebalance legs all go through Execute, so every order is logged and
// recorded the same way.
//
// Dependencies:
//   - domain.Trader: order placement (paper ledger or live broker)
//   - TradeRepositoryInterface: trade history
type TradingService struct {
	log       zerolog.Logger
	trader    domain.Trader
	tradeRepo TradeRepositoryInterface
	mode      string
}

// NewTradingService creates a new trading service.
// mode ("paper" or "live") is stored on every recorded trade.
func NewTradingService(
	trader domain.Trader,
	tradeRepo TradeRepositoryInterface,
	mode string,
	log zerolog.Logger,
) *TradingService {
	return &TradingService{
		log:       log.With().Str("service", "trading").Logger(),
		trader:    trader,
		tradeRepo: tradeRepo,
		mode:      mode,
	}
}

// Execute validates and places a market order
func (s *TradingService) Execute(req TradeRequest) (*domain.OrderReceipt, error) {
	symbol, err := domain.NormalizeSymbol(req.Symbol)
	if err != nil {
		return nil, err
	}
	if !req.Side.Valid() {
		return nil, fmt.Errorf("%w: invalid side %q", domain.ErrOrderRejected, req.Side)
	}
	if math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0) || req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %v", domain.ErrOrderRejected, req.Quantity)
	}
	source := req.Source
	if source == "" {
		source = SourceManual
	}

	s.log.Info().
		Str("symbol", symbol).
		Str("side", string(req.Side)).
		Float64("quantity", req.Quantity).
		Str("source", source).
		Msg("Executing trade")

	var receipt *domain.OrderReceipt
	if req.Side == domain.SideBuy {
		receipt, err = s.trader.MarketBuy(symbol, req.Quantity)
	} else {
		receipt, err = s.trader.MarketSell(symbol, req.Quantity)
	}
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("symbol", symbol).
			Str("side", string(req.Side)).
			Str("source", source).
			Msg("Trade failed")
		return nil, err
	}

	if s.tradeRepo != nil {
		if err := s.tradeRepo.Create(tradeFromReceipt(receipt, source, s.mode)); err != nil {
			// The order is filled; a history write failure does not undo it
			s.log.Error().
				Err(err).
				Str("order_id", receipt.OrderID).
				Msg("Failed to record trade")
		}
	}

	s.log.Info().
		Str("order_id", receipt.OrderID).
		Str("symbol", receipt.Symbol).
		Str("side", string(receipt.Side)).
		Float64("quantity", receipt.Quantity).
		Float64("price", receipt.Price).
		Str("source", source).
		Msg("Trade executed successfully")

	return receipt, nil
}

// MarketBuy places a manual buy
func (s *TradingService) MarketBuy(symbol string, quantity float64) (*domain.OrderReceipt, error) {
	return s.Execute(TradeRequest{Symbol: symbol, Side: domain.SideBuy, Quantity: quantity, Source: SourceManual})
}

// MarketSell places a manual sell
func (s *TradingService) MarketSell(symbol string, quantity float64) (*domain.OrderReceipt, error) {
	return s.Execute(TradeRequest{Symbol: symbol, Side: domain.SideSell, Quantity: quantity, Source: SourceManual})
}

// TraderFor returns a domain.Trader that tags every order with source
func (s *TradingService) TraderFor(source string) domain.Trader {
	return &sourcedTrader{service: s, source: source}
}

// GetHistory returns recent trades, newest first. symbol filters when non-empty.
func (s *TradingService) GetHistory(symbol string, limit int) ([]Trade, error) {
	if s.tradeRepo == nil {
		return []Trade{}, nil
	}
	if symbol != "" {
		return s.tradeRepo.GetBySymbol(symbol, limit)
	}
	return s.tradeRepo.GetHistory(limit)
}

type sourcedTrader struct {
	service *TradingService
	source  string
}

func (t *sourcedTrader) MarketBuy(symbol string, quantity float64) (*domain.OrderReceipt, error) {
	return t.service.Execute(TradeRequest{Symbol: symbol, Side: domain.SideBuy, Quantity: quantity, Source: t.source})
}

func (t *sourcedTrader) MarketSell(symbol string, quantity float64) (*domain.OrderReceipt, error) {
	return t.service.Execute(TradeRequest{Symbol: symbol, Side: domain.SideSell, Quantity: quantity, Source: t.source})
}
