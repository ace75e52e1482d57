package testing

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/tracker/internal/domain"
)

// MockBroker is a stateful in-memory broker for testing.
// Quotes come from a settable price table; orders fill at that price and adjust
// positions, but no cash is tracked.
type MockBroker struct {
	mu           sync.RWMutex
	prices       map[string]float64
	quoteErrs    map[string]error
	positions    map[string]domain.BrokerPosition
	orderErr     error
	positionsErr error
	orders       []domain.OrderReceipt
	quoteCalls   int
	seq          int
	onQuote      func(symbol string)
}

// NewMockBroker creates a new mock broker with no prices or positions
func NewMockBroker() *MockBroker {
	return &MockBroker{
		prices:    make(map[string]float64),
		quoteErrs: make(map[string]error),
		positions: make(map[string]domain.BrokerPosition),
	}
}

// SetPrice sets the quote returned for symbol
func (m *MockBroker) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
	delete(m.quoteErrs, symbol)
}

// SetQuoteError makes quotes for symbol fail with err
func (m *MockBroker) SetQuoteError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteErrs[symbol] = err
}

// SetPosition sets a held position
func (m *MockBroker) SetPosition(symbol string, quantity, averageCost float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = domain.BrokerPosition{Symbol: symbol, Quantity: quantity, AverageCost: averageCost}
}

// SetOrderError makes every order fail with err (nil clears it)
func (m *MockBroker) SetOrderError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderErr = err
}

// SetPositionsError makes GetPositions fail with err (nil clears it)
func (m *MockBroker) SetPositionsError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positionsErr = err
}

// OnQuote registers a hook called at the start of every GetQuote
func (m *MockBroker) OnQuote(fn func(symbol string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onQuote = fn
}

// Orders returns the filled orders in execution order
func (m *MockBroker) Orders() []domain.OrderReceipt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.OrderReceipt, len(m.orders))
	copy(out, m.orders)
	return out
}

// QuoteCalls returns the number of GetQuote calls
func (m *MockBroker) QuoteCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quoteCalls
}

// GetQuote returns the configured price
func (m *MockBroker) GetQuote(symbol string) (float64, error) {
	m.mu.RLock()
	hook := m.onQuote
	m.mu.RUnlock()
	if hook != nil {
		hook(symbol)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteCalls++
	if err, ok := m.quoteErrs[symbol]; ok {
		return 0, err
	}
	price, ok := m.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: no price for %s", domain.ErrQuoteUnavailable, symbol)
	}
	return price, nil
}

// MarketBuy fills a buy at the configured price
func (m *MockBroker) MarketBuy(symbol string, quantity float64) (*domain.OrderReceipt, error) {
	return m.fill(symbol, domain.SideBuy, quantity)
}

// MarketSell fills a sell at the configured price
func (m *MockBroker) MarketSell(symbol string, quantity float64) (*domain.OrderReceipt, error) {
	return m.fill(symbol, domain.SideSell, quantity)
}

// GetPositions returns held positions sorted by symbol
func (m *MockBroker) GetPositions() ([]domain.BrokerPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.positionsErr != nil {
		return nil, m.positionsErr
	}
	out := make([]domain.BrokerPosition, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *MockBroker) fill(symbol string, side domain.Side, quantity float64) (*domain.OrderReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.orderErr != nil {
		return nil, m.orderErr
	}
	price, ok := m.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no price for %s", domain.ErrQuoteUnavailable, symbol)
	}

	held := m.positions[symbol]
	switch side {
	case domain.SideBuy:
		cost := held.Quantity*held.AverageCost + quantity*price
		held.Quantity += quantity
		held.AverageCost = cost / held.Quantity
	case domain.SideSell:
		if held.Quantity < quantity {
			return nil, fmt.Errorf("%w: %s", domain.ErrInsufficientShares, symbol)
		}
		held.Quantity -= quantity
	}
	held.Symbol = symbol
	if held.Quantity == 0 {
		delete(m.positions, symbol)
	} else {
		m.positions[symbol] = held
	}

	m.seq++
	receipt := domain.OrderReceipt{
		OrderID:    fmt.Sprintf("mock-%d", m.seq),
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		ExecutedAt: time.Now(),
	}
	m.orders = append(m.orders, receipt)
	return &receipt, nil
}

// MockCash is a fixed cash balance
type MockCash float64

// GetCash returns the balance
func (c MockCash) GetCash() float64 {
	return float64(c)
}
