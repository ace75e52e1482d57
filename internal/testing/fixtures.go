package testing

// NewPriceFixtures returns quotes matching NewPositionFixtures
func NewPriceFixtures() map[string]float64 {
	return map[string]float64{
		"AAPL": 150.00,
		"MSFT": 300.00,
		"NVDA": 120.00,
	}
}

// PositionFixture describes a held position for tests
type PositionFixture struct {
	Symbol      string
	Quantity    float64
	AverageCost float64
}

// NewPositionFixtures returns a small set of held positions
func NewPositionFixtures() []PositionFixture {
	return []PositionFixture{
		{Symbol: "AAPL", Quantity: 10, AverageCost: 140.00},
		{Symbol: "MSFT", Quantity: 5, AverageCost: 310.00},
		{Symbol: "NVDA", Quantity: 20, AverageCost: 100.00},
	}
}

// NewSeededBroker returns a MockBroker holding the fixture positions at fixture prices
func NewSeededBroker() *MockBroker {
	b := NewMockBroker()
	for symbol, price := range NewPriceFixtures() {
		b.SetPrice(symbol, price)
	}
	for _, p := range NewPositionFixtures() {
		b.SetPosition(p.Symbol, p.Quantity, p.AverageCost)
	}
	return b
}
