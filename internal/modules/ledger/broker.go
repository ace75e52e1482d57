package ledger

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aristath/tracker/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultStartingCash is the balance of a fresh paper account
const DefaultStartingCash = 100000.0

// PaperBroker is a simulated brokerage that fills every market order at the current quote.
//
// Mutations are serialized by a mutex. Each trade is applied to a copy of the account,
// the copy is persisted, and only then does it replace the in-memory account, so a
// failed save leaves the ledger untouched.
type PaperBroker struct {
	mu      sync.Mutex
	account account
	store   Store
	quote   QuoteFunc
	now     func() time.Time
	log     zerolog.Logger
}

// NewPaperBroker loads the ledger from store, falling back to startingCash and no
// holdings when nothing is stored or the stored state is unreadable.
func NewPaperBroker(store Store, startingCash float64, log zerolog.Logger) *PaperBroker {
	b := &PaperBroker{
		account: newAccount(startingCash),
		store:   store,
		quote:   DeterministicQuote,
		now:     time.Now,
		log:     log.With().Str("service", "paper_broker").Logger(),
	}

	state, err := store.Load()
	switch {
	case err != nil:
		b.log.Warn().Err(err).Msg("Paper ledger unreadable, starting from defaults")
	case state == nil:
		b.log.Info().Float64("cash", startingCash).Msg("No paper ledger found, starting fresh account")
	default:
		if verr := state.Validate(); verr != nil {
			b.log.Warn().Err(verr).Msg("Paper ledger invalid, starting from defaults")
			break
		}
		b.account = accountFromState(*state)
		b.log.Info().
			Float64("cash", state.Cash).
			Int("holdings", len(b.account.holdings)).
			Msg("Paper ledger loaded")
	}

	return b
}

// SetQuoteFunc replaces the pricing function (defaults to DeterministicQuote)
func (b *PaperBroker) SetQuoteFunc(fn QuoteFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quote = fn
}

// GetQuote returns the current price for symbol
func (b *PaperBroker) GetQuote(symbol string) (float64, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	quote := b.quote
	b.mu.Unlock()

	price, err := quote(sym)
	return checkQuote(sym, price, err)
}

// MarketBuy buys quantity shares at the current quote.
// Fails with domain.ErrInsufficientFunds when the cost exceeds available cash.
func (b *PaperBroker) MarketBuy(symbol string, quantity float64) (*domain.OrderReceipt, error) {
	sym, qty, err := validateOrder(symbol, quantity)
	if err != nil {
		return nil, err
	}

	price, err := b.GetQuote(sym)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	px := decimal.NewFromFloat(price)
	cost := px.Mul(qty)
	if cost.GreaterThan(b.account.cash) {
		return nil, fmt.Errorf("%w: buying %s %s costs %s, available %s",
			domain.ErrInsufficientFunds, qty, sym, cost.StringFixed(2), b.account.cash.StringFixed(2))
	}

	next := b.account.clone()
	held := next.holdings[sym]
	newQty := held.quantity.Add(qty)
	newAvg := held.quantity.Mul(held.averageCost).Add(cost).Div(newQty)
	next.holdings[sym] = position{quantity: newQty, averageCost: newAvg}
	next.cash = next.cash.Sub(cost)

	if err := b.commit(next); err != nil {
		return nil, err
	}

	b.log.Info().
		Str("symbol", sym).
		Float64("quantity", quantity).
		Float64("price", price).
		Str("cash", next.cash.StringFixed(2)).
		Msg("Paper buy filled")

	return b.receipt(sym, domain.SideBuy, quantity, price), nil
}

// MarketSell sells quantity shares at the current quote.
// Fails with domain.ErrInsufficientShares when the holding is missing or too small.
func (b *PaperBroker) MarketSell(symbol string, quantity float64) (*domain.OrderReceipt, error) {
	sym, qty, err := validateOrder(symbol, quantity)
	if err != nil {
		return nil, err
	}

	price, err := b.GetQuote(sym)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	held, ok := b.account.holdings[sym]
	if !ok {
		return nil, fmt.Errorf("%w: no %s holding", domain.ErrInsufficientShares, sym)
	}
	if held.quantity.LessThan(qty) {
		return nil, fmt.Errorf("%w: selling %s %s, holding %s",
			domain.ErrInsufficientShares, qty, sym, held.quantity)
	}

	next := b.account.clone()
	remaining := held.quantity.Sub(qty)
	if remaining.Sign() <= 0 {
		delete(next.holdings, sym)
	} else {
		next.holdings[sym] = position{quantity: remaining, averageCost: held.averageCost}
	}
	proceeds := decimal.NewFromFloat(price).Mul(qty)
	next.cash = next.cash.Add(proceeds)

	if err := b.commit(next); err != nil {
		return nil, err
	}

	b.log.Info().
		Str("symbol", sym).
		Float64("quantity", quantity).
		Float64("price", price).
		Str("cash", next.cash.StringFixed(2)).
		Msg("Paper sell filled")

	return b.receipt(sym, domain.SideSell, quantity, price), nil
}

// GetPositions lists holdings sorted by symbol
func (b *PaperBroker) GetPositions() ([]domain.BrokerPosition, error) {
	state := b.State()

	positions := make([]domain.BrokerPosition, 0, len(state.Holdings))
	for _, symbol := range state.Symbols() {
		h := state.Holdings[symbol]
		positions = append(positions, domain.BrokerPosition{
			Symbol:      symbol,
			Quantity:    h.Quantity,
			AverageCost: h.AverageCost,
		})
	}
	return positions, nil
}

// GetCash returns the available cash balance
func (b *PaperBroker) GetCash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account.cash.InexactFloat64()
}

// State returns a copy of the ledger
func (b *PaperBroker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account.toState()
}

// commit persists next and swaps it in. Caller holds b.mu.
func (b *PaperBroker) commit(next account) error {
	if err := b.store.Save(next.toState()); err != nil {
		b.log.Error().Err(err).Msg("Failed to persist paper ledger, trade discarded")
		return fmt.Errorf("%w: failed to save paper ledger: %w", domain.ErrPersistence, err)
	}
	b.account = next
	return nil
}

func (b *PaperBroker) receipt(symbol string, side domain.Side, quantity, price float64) *domain.OrderReceipt {
	return &domain.OrderReceipt{
		OrderID:    uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		ExecutedAt: b.now(),
	}
}

func validateOrder(symbol string, quantity float64) (string, decimal.Decimal, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return "", decimal.Zero, err
	}
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity <= 0 {
		return "", decimal.Zero, fmt.Errorf("%w: quantity must be positive, got %v", domain.ErrOrderRejected, quantity)
	}
	return sym, decimal.NewFromFloat(quantity), nil
}
