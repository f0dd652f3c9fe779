package engine

import (
	"testing"

	"signal-advisor/config"
)

func testLevels() *Levels {
	return NewLevels(config.Default().RiskConfig)
}

func TestLevelsBuyOnHourly(t *testing.T) {
	stopLoss, takeProfit := testLevels().Compute("buy", "1h", 100000, 0)

	// 1h row: 1.2% stop, 1.8% target
	approx(t, stopLoss, 98800, "stop loss")
	approx(t, takeProfit, 101800, "take profit")
}

func TestLevelsSellMirrors(t *testing.T) {
	stopLoss, takeProfit := testLevels().Compute("sell", "1h", 100000, 0)

	approx(t, stopLoss, 101200, "stop loss")
	approx(t, takeProfit, 98200, "take profit")
}

func TestLevelsOrderingInvariant(t *testing.T) {
	for _, interval := range []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"} {
		sl, tp := testLevels().Compute("buy", interval, 50000, 0)
		if !(sl < 50000 && 50000 < tp) {
			t.Errorf("%s buy: want sl < entry < tp, got %f / %f", interval, sl, tp)
		}

		sl, tp = testLevels().Compute("sell", interval, 50000, 0)
		if !(tp < 50000 && 50000 < sl) {
			t.Errorf("%s sell: want tp < entry < sl, got %f / %f", interval, sl, tp)
		}
	}
}

func TestLevelsHoldYieldsZero(t *testing.T) {
	sl, tp := testLevels().Compute("hold", "1h", 100000, 0)
	if sl != 0 || tp != 0 {
		t.Errorf("expected zero levels for hold, got %f / %f", sl, tp)
	}
}

func TestLevelsInvalidEntry(t *testing.T) {
	sl, tp := testLevels().Compute("buy", "1h", 0, 0)
	if sl != 0 || tp != 0 {
		t.Errorf("expected zero levels for zero entry, got %f / %f", sl, tp)
	}
}

func TestLevelsUnknownIntervalFallsBack(t *testing.T) {
	sl, tp := testLevels().Compute("buy", "2h", 100000, 0)

	approx(t, sl, 98800, "fallback stop loss")
	approx(t, tp, 101800, "fallback take profit")
}

func TestLevelsATRWidensStop(t *testing.T) {
	cfg := config.Default().RiskConfig
	cfg.UseATRWiden = true
	cfg.ATRMultiple = 2.0

	// 2 * 1000 = 2000 distance, wider than the 1.2% table row (1200)
	sl, tp := NewLevels(cfg).Compute("buy", "1h", 100000, 1000)
	approx(t, sl, 98000, "widened stop loss")
	approx(t, tp, 101800, "take profit unchanged")
}

func TestLevelsATRNeverTightensStop(t *testing.T) {
	cfg := config.Default().RiskConfig
	cfg.UseATRWiden = true
	cfg.ATRMultiple = 2.0

	// 2 * 100 = 200 distance, tighter than the table row: row wins
	sl, _ := NewLevels(cfg).Compute("buy", "1h", 100000, 100)
	approx(t, sl, 98800, "stop loss")
}
