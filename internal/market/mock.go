package market

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// MockClient generates deterministic simulated price data. Used in mock mode
// when the exchange API is unavailable, and by tests.
type MockClient struct {
	mu         sync.Mutex
	basePrices map[string]float64
}

// NewMockClient creates a mock market data provider.
func NewMockClient() *MockClient {
	return &MockClient{
		basePrices: map[string]float64{
			"BTCUSDT": 100000.0,
			"ETHUSDT": 3500.0,
		},
	}
}

func (m *MockClient) basePrice(symbol string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.basePrices[symbol]; ok {
		return p
	}
	// Stable pseudo-price derived from the symbol name
	p := 10.0
	for _, ch := range symbol {
		p += float64(ch)
	}
	m.basePrices[symbol] = p
	return p
}

// GetKlines returns synthetic candles following a smooth oscillation so that
// indicators produce varied but reproducible values.
func (m *MockClient) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit %d", limit)
	}

	base := m.basePrice(symbol)
	step := intervalDuration(interval)
	now := time.Now().Truncate(step)
	start := now.Add(-time.Duration(limit) * step)

	klines := make([]Kline, 0, limit)
	for i := 0; i < limit; i++ {
		phase := float64(i) * 0.15
		drift := base * 0.002 * math.Sin(phase)
		wave := base * 0.001 * math.Sin(phase*3.7)

		open := base + drift
		close := base + drift + wave
		high := math.Max(open, close) + base*0.0005
		low := math.Min(open, close) - base*0.0005
		volume := 100 + 50*math.Abs(math.Sin(phase*1.3))

		openTime := start.Add(time.Duration(i) * step)
		klines = append(klines, Kline{
			OpenTime:  openTime.UnixMilli(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			CloseTime: openTime.Add(step).UnixMilli() - 1,
		})
	}

	return klines, nil
}

// GetCurrentPrice returns the mock base price for a symbol.
func (m *MockClient) GetCurrentPrice(symbol string) (float64, error) {
	return m.basePrice(symbol), nil
}

func intervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}
