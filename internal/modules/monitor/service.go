package monitor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/tracker/internal/domain"
	"github.com/rs/zerolog"
)

// RunState reports whether periodic monitoring is active
type RunState interface {
	IsRunning() bool
}

// Service holds the watch registry and evaluates it against live quotes.
//
// mu guards the registry map and is never held across quote or order calls.
// cycleMu serializes evaluation-plus-execution passes so a scheduled cycle and
// a manual check cannot both sell the same position.
type Service struct {
	mu      sync.Mutex
	configs map[string]WatchConfig

	cycleMu sync.Mutex

	quotes   domain.QuoteProvider
	trader   domain.Trader
	store    Store
	runState RunState
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates the monitor and loads the registry from store.
// An unreadable registry starts empty with a warning.
func NewService(quotes domain.QuoteProvider, trader domain.Trader, store Store, log zerolog.Logger) *Service {
	s := &Service{
		configs: make(map[string]WatchConfig),
		quotes:  quotes,
		trader:  trader,
		store:   store,
		now:     time.Now,
		log:     log.With().Str("service", "monitor").Logger(),
	}

	configs, err := store.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("Watch registry unreadable, starting empty")
		return s
	}
	for symbol, c := range configs {
		s.configs[symbol] = c
	}
	s.log.Info().Int("positions", len(s.configs)).Msg("Watch registry loaded")

	return s
}

// SetRunState wires the scheduler so status reports whether monitoring is running
func (s *Service) SetRunState(rs RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runState = rs
}

// AddPosition starts watching symbol, entered at the current quote.
// Adding a symbol that is already watched replaces its config.
func (s *Service) AddPosition(symbol string, quantity, stopLossPct, takeProfitPct float64) (*WatchConfig, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	price, err := s.quote(sym)
	if err != nil {
		return nil, err
	}

	cfg, err := NewWatchConfig(sym, quantity, stopLossPct, takeProfitPct, price, s.now())
	if err != nil {
		return nil, err
	}
	if stopLossPct >= takeProfitPct {
		s.log.Warn().
			Str("symbol", sym).
			Float64("stop_loss_pct", stopLossPct).
			Float64("take_profit_pct", takeProfitPct).
			Msg("Stop loss is not below take profit; stop loss wins on overlap")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.configs[sym]
	s.configs[sym] = *cfg
	if err := s.saveLocked(); err != nil {
		if existed {
			s.configs[sym] = prev
		} else {
			delete(s.configs, sym)
		}
		return nil, err
	}

	s.log.Info().
		Str("symbol", sym).
		Float64("quantity", quantity).
		Float64("entry_price", price).
		Float64("stop_loss_pct", stopLossPct).
		Float64("take_profit_pct", takeProfitPct).
		Msg("Position added to monitoring")

	out := *cfg
	return &out, nil
}

// RemovePosition stops watching symbol. Returns false when it was not watched.
func (s *Service) RemovePosition(symbol string) (bool, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeLocked(sym)
}

// GetPosition returns the watch for symbol
func (s *Service) GetPosition(symbol string) (WatchConfig, bool) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return WatchConfig{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[sym]
	return c, ok
}

// ListPositions returns every watch sorted by symbol
func (s *Service) ListPositions() []WatchConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WatchConfig, 0, len(s.configs))
	for _, c := range s.configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// CheckPosition evaluates one watch at the current quote.
// Returns nil with no error when symbol is not watched or inactive.
// When the check time cannot be saved the decision is still returned, together
// with an error wrapping domain.ErrPersistence.
func (s *Service) CheckPosition(symbol string) (*Decision, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	decision, err := s.check(sym)
	if err != nil || decision == nil {
		return decision, err
	}
	if err := s.persistCheckTimes(); err != nil {
		return decision, err
	}
	return decision, nil
}

// ExecuteTrade carries out a decision from CheckPosition.
//
// A sell is only placed while the watch it was decided for is still
// registered; a decision made for a watch that has since been removed or
// replaced is rejected. A filled sell removes the watch. A buy leaves the
// watch in place. Hold decisions are
// rejected with domain.ErrOrderRejected. Broker failures are returned as
// *domain.TradeExecutionError and leave the registry unchanged.
//
// When the order fills but the registry cannot be saved afterwards, both the
// receipt and an error wrapping domain.ErrPersistence are returned. The watch
// is gone from memory either way.
func (s *Service) ExecuteTrade(decision *Decision) (*domain.OrderReceipt, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	return s.executeTrade(decision)
}

// CheckAllPositions evaluates every active watch and executes triggered exits.
// Each symbol is isolated: a failing quote or a panic is recorded in the report
// and the pass moves on. Check timestamps are saved once at the end.
func (s *Service) CheckAllPositions() CycleReport {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	report := CycleReport{
		StartedAt: s.now(),
		Holds:     make([]Decision, 0),
		Trades:    make([]TradeOutcome, 0),
		Failures:  make([]SymbolFailure, 0),
	}

	symbols := s.activeSymbols()
	if len(symbols) == 0 {
		report.FinishedAt = s.now()
		return report
	}

	s.log.Info().Int("positions", len(symbols)).Msg("Checking monitored positions")

	for _, sym := range symbols {
		decision, err := s.checkIsolated(sym)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", sym).Msg("Position check failed")
			report.Failures = append(report.Failures, SymbolFailure{Symbol: sym, Error: err.Error()})
			continue
		}
		if decision == nil {
			// removed or deactivated since the symbol list was taken
			continue
		}
		report.Checked++

		if decision.Action == ActionHold {
			s.log.Debug().
				Str("symbol", sym).
				Float64("pct_change", decision.PctChange).
				Msg("Holding")
			report.Holds = append(report.Holds, *decision)
			continue
		}

		outcome := TradeOutcome{Decision: *decision}
		receipt, err := s.executeIsolated(decision)
		outcome.Receipt = receipt
		if err != nil {
			outcome.Error = err.Error()
		}
		report.Trades = append(report.Trades, outcome)
	}

	if err := s.persistCheckTimes(); err != nil {
		report.PersistError = err.Error()
	}

	report.FinishedAt = s.now()
	s.log.Info().
		Int("checked", report.Checked).
		Int("holds", len(report.Holds)).
		Int("trades", len(report.Trades)).
		Int("failures", len(report.Failures)).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Monitoring cycle complete")

	return report
}

// GetStatus reports every active watch at its current quote.
// A failed quote marks only that row.
func (s *Service) GetStatus() Status {
	s.mu.Lock()
	configs := make([]WatchConfig, 0, len(s.configs))
	for _, c := range s.configs {
		configs = append(configs, c)
	}
	runState := s.runState
	s.mu.Unlock()

	sort.Slice(configs, func(i, j int) bool { return configs[i].Symbol < configs[j].Symbol })

	status := Status{
		Running:        runState != nil && runState.IsRunning(),
		TotalPositions: len(configs),
		Positions:      make([]StatusRow, 0, len(configs)),
	}

	for _, c := range configs {
		if !c.IsActive {
			continue
		}
		status.ActivePositions++

		price, err := s.quote(c.Symbol)
		if err != nil {
			status.Positions = append(status.Positions, StatusRow{Symbol: c.Symbol, Error: err.Error()})
			continue
		}

		lastChecked := c.LastCheckedAt
		status.Positions = append(status.Positions, StatusRow{
			Symbol:        c.Symbol,
			Quantity:      c.Quantity,
			EntryPrice:    c.EntryPrice,
			CurrentPrice:  price,
			PctChange:     c.PctChange(price),
			StopLossPct:   c.StopLossPct,
			TakeProfitPct: c.TakeProfitPct,
			LastCheckedAt: &lastChecked,
		})
	}

	return status
}

func (s *Service) check(sym string) (*Decision, error) {
	s.mu.Lock()
	cfg, ok := s.configs[sym]
	s.mu.Unlock()
	if !ok || !cfg.IsActive {
		return nil, nil
	}

	price, err := s.quote(sym)
	if err != nil {
		return nil, err
	}

	now := s.now()
	decision := cfg.Evaluate(price, now)

	s.mu.Lock()
	if current, ok := s.configs[sym]; ok {
		current.LastCheckedAt = now
		s.configs[sym] = current
	}
	s.mu.Unlock()

	return &decision, nil
}

func (s *Service) checkIsolated(sym string) (decision *Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("symbol", sym).Msg("Panic while checking position")
			decision, err = nil, fmt.Errorf("panic while checking %s: %v", sym, r)
		}
	}()
	return s.check(sym)
}

func (s *Service) executeIsolated(decision *Decision) (receipt *domain.OrderReceipt, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("symbol", decision.Symbol).Msg("Panic while executing trade")
			receipt = nil
			err = &domain.TradeExecutionError{
				Symbol: decision.Symbol,
				Action: domain.Side(decision.Action),
				Err:    fmt.Errorf("panic: %v", r),
			}
		}
	}()
	return s.executeTrade(decision)
}

// executeTrade requires cycleMu
func (s *Service) executeTrade(decision *Decision) (*domain.OrderReceipt, error) {
	if decision == nil {
		return nil, fmt.Errorf("%w: no decision", domain.ErrOrderRejected)
	}

	switch decision.Action {
	case ActionSell:
		s.mu.Lock()
		cfg, watched := s.configs[decision.Symbol]
		s.mu.Unlock()
		if !watched {
			return nil, fmt.Errorf("%w: %s is no longer monitored", domain.ErrOrderRejected, decision.Symbol)
		}
		if !decision.decidedFor(cfg) {
			return nil, fmt.Errorf("%w: %s watch changed since it was checked", domain.ErrOrderRejected, decision.Symbol)
		}

		receipt, err := s.trader.MarketSell(decision.Symbol, decision.Quantity)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", decision.Symbol).Msg("Monitor sell failed")
			return nil, &domain.TradeExecutionError{Symbol: decision.Symbol, Action: domain.SideSell, Err: err}
		}

		s.log.Info().
			Str("symbol", decision.Symbol).
			Float64("quantity", decision.Quantity).
			Float64("price", receipt.Price).
			Float64("pct_change", decision.PctChange).
			Str("reason", decision.Reason).
			Msg("Monitor sold position")

		s.mu.Lock()
		err = s.dropExitedLocked(*decision)
		s.mu.Unlock()
		return receipt, err

	case ActionBuy:
		receipt, err := s.trader.MarketBuy(decision.Symbol, decision.Quantity)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", decision.Symbol).Msg("Monitor buy failed")
			return nil, &domain.TradeExecutionError{Symbol: decision.Symbol, Action: domain.SideBuy, Err: err}
		}
		s.log.Info().
			Str("symbol", decision.Symbol).
			Float64("quantity", decision.Quantity).
			Float64("price", receipt.Price).
			Msg("Monitor bought position")
		return receipt, nil

	default:
		return nil, fmt.Errorf("%w: nothing to execute for %s decision", domain.ErrOrderRejected, decision.Action)
	}
}

// removeLocked deletes sym and persists, restoring it when the save fails. Caller holds mu.
func (s *Service) removeLocked(sym string) (bool, error) {
	prev, ok := s.configs[sym]
	if !ok {
		return false, nil
	}

	delete(s.configs, sym)
	if err := s.saveLocked(); err != nil {
		s.configs[sym] = prev
		return false, err
	}

	s.log.Info().Str("symbol", sym).Msg("Position removed from monitoring")
	return true, nil
}

// dropExitedLocked removes the watch a filled sell was decided for. The watch
// stays out of memory when the save fails, since its shares are already sold.
// A watch registered in its place after the check is kept. Caller holds mu.
func (s *Service) dropExitedLocked(d Decision) error {
	cfg, ok := s.configs[d.Symbol]
	if !ok {
		return nil
	}
	if !d.decidedFor(cfg) {
		s.log.Warn().Str("symbol", d.Symbol).Msg("Watch replaced while exiting, keeping the new watch")
		return nil
	}

	delete(s.configs, d.Symbol)
	if err := s.saveLocked(); err != nil {
		return err
	}

	s.log.Info().Str("symbol", d.Symbol).Msg("Position removed from monitoring")
	return nil
}

// saveLocked persists a copy of the registry. Caller holds mu.
func (s *Service) saveLocked() error {
	snapshot := make(map[string]WatchConfig, len(s.configs))
	for symbol, c := range s.configs {
		snapshot[symbol] = c
	}
	if err := s.store.Save(snapshot); err != nil {
		s.log.Error().Err(err).Msg("Failed to save watch registry")
		return fmt.Errorf("%w: failed to save watch registry: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (s *Service) persistCheckTimes() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Service) activeSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols := make([]string, 0, len(s.configs))
	for symbol, c := range s.configs {
		if c.IsActive {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

func (s *Service) quote(sym string) (float64, error) {
	price, err := s.quotes.GetQuote(sym)
	if err != nil {
		if errors.Is(err, domain.ErrQuoteUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrQuoteUnavailable, sym, err)
	}
	if !finite(price) || price <= 0 {
		return 0, fmt.Errorf("%w: %s: invalid price %v", domain.ErrQuoteUnavailable, sym, price)
	}
	return price, nil
}
