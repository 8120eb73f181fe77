package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu       sync.Mutex
	source   model.Source
	quotes   map[string]model.PriceSnapshot
	closes   map[string][]float64
	listings []model.Listing
	down     map[string]bool
	err      error
}

// NewMockFetcher creates an empty mock for source.
func NewMockFetcher(source model.Source) *MockFetcher {
	return &MockFetcher{
		source: source,
		quotes: make(map[string]model.PriceSnapshot),
		closes: make(map[string][]float64),
		down:   make(map[string]bool),
	}
}

func (m *MockFetcher) Name() string         { return "mock-" + string(m.source) }
func (m *MockFetcher) Source() model.Source { return m.source }

// SetPrice sets the quote returned for id.
func (m *MockFetcher) SetPrice(id string, price, changePct float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[id] = model.PriceSnapshot{Price: price, ChangePct24h: changePct, Time: time.Now()}
}

// SetCloses sets the candle closes returned for id.
func (m *MockFetcher) SetCloses(id string, closes []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes[id] = closes
}

// SetDown makes id unavailable until cleared.
func (m *MockFetcher) SetDown(id string, down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down[id] = down
}

// SetError makes every call fail with err; nil restores normal behavior.
func (m *MockFetcher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetListings sets the symbol list.
func (m *MockFetcher) SetListings(listings ...model.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings = listings
}

func (m *MockFetcher) FetchQuotes(_ context.Context, ids []string) (map[string]model.PriceSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]model.PriceSnapshot, len(ids))
	for _, id := range ids {
		if q, ok := m.quotes[id]; ok && !m.down[id] {
			out[id] = q
		}
	}
	return out, nil
}

func (m *MockFetcher) ListSymbols(_ context.Context) ([]model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.Listing{}, m.listings...), nil
}

// MockCandleFetcher is a MockFetcher that also serves candles, like an
// exchange. Symbols without closes get a flat series around their price.
type MockCandleFetcher struct {
	*MockFetcher
}

// NewMockExchange creates a candle-capable mock for the exchange source.
func NewMockExchange() *MockCandleFetcher {
	return &MockCandleFetcher{NewMockFetcher(model.SourceExchange)}
}

func (m *MockCandleFetcher) FetchCandles(_ context.Context, id, interval string, limit int) (model.CandleSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	series := model.CandleSeries{Symbol: id, Interval: interval}
	if m.err != nil {
		return series, m.err
	}
	if m.down[id] {
		return series, fmt.Errorf("mock: %s down", id)
	}
	closes, ok := m.closes[id]
	if !ok {
		q, ok := m.quotes[id]
		if !ok {
			return series, fmt.Errorf("mock: no data for %s", id)
		}
		closes = generateMockCloses(q.Price, limit)
	}
	if limit > 0 && len(closes) > limit {
		closes = closes[len(closes)-limit:]
	}
	series.Bars = generateMockBars(closes)
	return series, nil
}

// generateMockCloses drifts gently around basePrice.
func generateMockCloses(basePrice float64, count int) []float64 {
	closes := make([]float64, count)
	for i := range closes {
		closes[i] = basePrice * (1 + float64(i-count/2)*0.0001)
	}
	return closes
}

func generateMockBars(closes []float64) []model.OHLCV {
	count := len(closes)
	bars := make([]model.OHLCV, count)
	for i, p := range closes {
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
