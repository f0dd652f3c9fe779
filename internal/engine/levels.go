package engine

import (
	"signal-advisor/config"
	"signal-advisor/internal/analysis"
)

// Levels computes entry-relative stop-loss and take-profit prices from the
// per-timeframe risk table. Unknown timeframes use the 1h row, which config
// validation guarantees exists.
type Levels struct {
	cfg config.RiskConfig
}

// NewLevels creates a trade level calculator.
func NewLevels(cfg config.RiskConfig) *Levels {
	return &Levels{cfg: cfg}
}

// Compute returns (stopLoss, takeProfit) for a position entered at entry.
// A buy stops below entry and targets above; a sell mirrors both. Any
// non-directional call yields zero levels. When ATR widening is enabled the
// stop distance grows to the ATR multiple if the table row is tighter; the
// table row is never tightened.
func (l *Levels) Compute(direction string, interval string, entry, atrValue float64) (float64, float64) {
	if direction != string(analysis.Buy) && direction != string(analysis.Sell) {
		return 0, 0
	}
	if entry <= 0 {
		return 0, 0
	}

	row, ok := l.cfg.Levels[interval]
	if !ok {
		row = l.cfg.Levels["1h"]
	}

	slDistance := entry * row.StopLossPct
	tpDistance := entry * row.TakeProfitPct

	if l.cfg.UseATRWiden && atrValue > 0 {
		if widened := atrValue * l.cfg.ATRMultiple; widened > slDistance {
			slDistance = widened
		}
	}

	if direction == string(analysis.Buy) {
		return entry - slDistance, entry + tpDistance
	}
	return entry + slDistance, entry - tpDistance
}
