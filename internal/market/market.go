package market

// Kline represents a single candlestick of price history
type Kline struct {
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"close_time"`
}

// DataProvider is the market data collaborator boundary. Implementations are
// expected to block on network I/O; the engine only ever consumes the
// already-resolved slices they return.
type DataProvider interface {
	// GetKlines returns up to limit bars of history, oldest first.
	GetKlines(symbol, interval string, limit int) ([]Kline, error)
	// GetCurrentPrice returns the latest traded price for the symbol.
	GetCurrentPrice(symbol string) (float64, error)
}
