package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aristath/tracker/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory Store with an optional save failure
type memoryStore struct {
	mu      sync.Mutex
	state   *State
	saves   int
	saveErr error
}

func (m *memoryStore) Load() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, nil
	}
	s := *m.state
	return &s, nil
}

func (m *memoryStore) Save(state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = &state
	return nil
}

// priceBoard is a mutable quote source for tests
type priceBoard struct {
	mu     sync.Mutex
	prices map[string]float64
}

func newPriceBoard(prices map[string]float64) *priceBoard {
	return &priceBoard{prices: prices}
}

func (p *priceBoard) set(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

func (p *priceBoard) quote(symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	price, ok := p.prices[symbol]
	if !ok {
		return 0, errors.New("no price")
	}
	return price, nil
}

func newTestBroker(t *testing.T, prices map[string]float64) (*PaperBroker, *memoryStore, *priceBoard) {
	t.Helper()
	store := &memoryStore{}
	board := newPriceBoard(prices)
	b := NewPaperBroker(store, DefaultStartingCash, zerolog.Nop())
	b.SetQuoteFunc(board.quote)
	return b, store, board
}

func TestDeterministicQuote_Stable(t *testing.T) {
	for _, symbol := range []string{"AAPL", "MSFT", "TSLA", "BRK.B", "X"} {
		first, err := DeterministicQuote(symbol)
		require.NoError(t, err)
		second, err := DeterministicQuote(symbol)
		require.NoError(t, err)

		assert.Equal(t, first, second, symbol)
		assert.GreaterOrEqual(t, first, 100.0)
		assert.Less(t, first, 150.0)
		// One decimal step of 0.1
		assert.InDelta(t, first*10, float64(int64(first*10+0.5)), 1e-9)
	}

	_, err := DeterministicQuote("")
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
}

func TestPaperBroker_QuoteSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper_state.json")

	first := NewPaperBroker(NewFileStore(path), DefaultStartingCash, zerolog.Nop())
	q1, err := first.GetQuote("nvda")
	require.NoError(t, err)

	second := NewPaperBroker(NewFileStore(path), DefaultStartingCash, zerolog.Nop())
	q2, err := second.GetQuote("NVDA")
	require.NoError(t, err)

	assert.Equal(t, q1, q2)
}

func TestPaperBroker_WorkedExample(t *testing.T) {
	b, store, board := newTestBroker(t, map[string]float64{"AAPL": 150.00})

	receipt, err := b.MarketBuy("AAPL", 10)
	require.NoError(t, err)
	assert.Equal(t, domain.SideBuy, receipt.Side)
	assert.Equal(t, 150.0, receipt.Price)
	assert.NotEmpty(t, receipt.OrderID)

	assert.Equal(t, 98500.0, b.GetCash())
	state := b.State()
	require.Contains(t, state.Holdings, "AAPL")
	assert.Equal(t, Holding{Quantity: 10, AverageCost: 150}, state.Holdings["AAPL"])

	board.set("AAPL", 142.00)
	receipt, err = b.MarketSell("AAPL", 10)
	require.NoError(t, err)
	assert.Equal(t, domain.SideSell, receipt.Side)
	assert.Equal(t, 142.0, receipt.Price)

	assert.Equal(t, 99920.0, b.GetCash())
	assert.NotContains(t, b.State().Holdings, "AAPL")
	assert.Equal(t, 2, store.saves, "every mutation is persisted")
}

func TestPaperBroker_RoundTripRestoresCash(t *testing.T) {
	b, _, _ := newTestBroker(t, map[string]float64{"MSFT": 123.45})

	before := b.GetCash()
	_, err := b.MarketBuy("MSFT", 7.25)
	require.NoError(t, err)
	_, err = b.MarketSell("MSFT", 7.25)
	require.NoError(t, err)

	assert.Equal(t, before, b.GetCash())
	assert.Empty(t, b.State().Holdings)
}

func TestPaperBroker_AverageCostIsWeighted(t *testing.T) {
	b, _, board := newTestBroker(t, map[string]float64{"AAPL": 100})

	_, err := b.MarketBuy("AAPL", 10)
	require.NoError(t, err)
	board.set("AAPL", 130)
	_, err = b.MarketBuy("aapl", 20)
	require.NoError(t, err)

	h := b.State().Holdings["AAPL"]
	assert.Equal(t, 30.0, h.Quantity)
	assert.InDelta(t, 120.0, h.AverageCost, 1e-9)

	// Partial sells keep the cost basis
	_, err = b.MarketSell("AAPL", 5)
	require.NoError(t, err)
	h = b.State().Holdings["AAPL"]
	assert.Equal(t, 25.0, h.Quantity)
	assert.InDelta(t, 120.0, h.AverageCost, 1e-9)
}

func TestPaperBroker_InsufficientFunds(t *testing.T) {
	b, store, _ := newTestBroker(t, map[string]float64{"BRK.A": 600000})

	_, err := b.MarketBuy("BRK.A", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, DefaultStartingCash, b.GetCash())
	assert.Empty(t, b.State().Holdings)
	assert.Equal(t, 0, store.saves)
}

func TestPaperBroker_InsufficientShares(t *testing.T) {
	b, _, _ := newTestBroker(t, map[string]float64{"AAPL": 150})

	_, err := b.MarketSell("AAPL", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)

	_, err = b.MarketBuy("AAPL", 2)
	require.NoError(t, err)
	before := b.State()

	_, err = b.MarketSell("AAPL", 3)
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
	assert.Equal(t, before, b.State())
}

func TestPaperBroker_RejectsBadOrders(t *testing.T) {
	b, _, _ := newTestBroker(t, map[string]float64{"AAPL": 150})

	_, err := b.MarketBuy("AAPL", 0)
	assert.ErrorIs(t, err, domain.ErrOrderRejected)

	_, err = b.MarketSell("AAPL", -1)
	assert.ErrorIs(t, err, domain.ErrOrderRejected)

	_, err = b.MarketBuy("  ", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)

	_, err = b.MarketBuy("NOPE", 1)
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
}

func TestPaperBroker_PersistenceFailureLeavesStateUnchanged(t *testing.T) {
	b, store, _ := newTestBroker(t, map[string]float64{"AAPL": 150})
	store.saveErr = errors.New("disk full")

	_, err := b.MarketBuy("AAPL", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	assert.Equal(t, DefaultStartingCash, b.GetCash())
	assert.Empty(t, b.State().Holdings)
}

func TestPaperBroker_LoadFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0644))

	b := NewPaperBroker(NewFileStore(path), 5000, zerolog.Nop())
	assert.Equal(t, 5000.0, b.GetCash())
	assert.Empty(t, b.State().Holdings)

	invalid := &memoryStore{state: &State{Cash: -10}}
	b = NewPaperBroker(invalid, 5000, zerolog.Nop())
	assert.Equal(t, 5000.0, b.GetCash())
}

func TestPaperBroker_ReloadsPersistedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper_state.json")

	b := NewPaperBroker(NewFileStore(path), DefaultStartingCash, zerolog.Nop())
	b.SetQuoteFunc(newPriceBoard(map[string]float64{"AAPL": 150, "MSFT": 300}).quote)
	_, err := b.MarketBuy("AAPL", 10)
	require.NoError(t, err)
	_, err = b.MarketBuy("MSFT", 1.5)
	require.NoError(t, err)

	reloaded := NewPaperBroker(NewFileStore(path), DefaultStartingCash, zerolog.Nop())
	assert.Equal(t, b.State(), reloaded.State())

	positions, err := reloaded.GetPositions()
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, "MSFT", positions[1].Symbol)
	assert.Equal(t, 1.5, positions[1].Quantity)
}

func TestPaperBroker_ConcurrentTradesKeepCashConsistent(t *testing.T) {
	b, _, _ := newTestBroker(t, map[string]float64{"AAPL": 100})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = b.MarketBuy("AAPL", 1)
		}()
	}
	wg.Wait()

	state := b.State()
	assert.Equal(t, 50.0, state.Holdings["AAPL"].Quantity)
	assert.Equal(t, DefaultStartingCash-5000, state.Cash)
}
