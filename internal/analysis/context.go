package analysis

import (
	"strings"

	"signal-advisor/internal/indicators"
	"signal-advisor/internal/market"
)

// Trend labels for MarketContext.
const (
	TrendBullish  = "bullish"
	TrendBearish  = "bearish"
	TrendSideways = "sideways"
)

// Noise levels in ascending order of choppiness.
const (
	NoiseVeryLow = "very_low"
	NoiseLow     = "low"
	NoiseMedium  = "medium"
	NoiseHigh    = "high"
)

// Timeframe weight classes. Short timeframes lean harder on volume, long
// timeframes lean harder on the predictor.
const (
	ClassShort = "short"
	ClassBase  = "base"
	ClassLong  = "long"
)

// Risk levels for the macro profile.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// TimeframeProfile is the static character of a chart timeframe.
type TimeframeProfile struct {
	Interval   string `json:"interval"`
	Class      string `json:"class"`
	NoiseLevel string `json:"noise_level"`
}

// MacroProfile describes the instrument itself rather than its chart.
type MacroProfile struct {
	AssetClass string `json:"asset_class"`
	RiskLevel  string `json:"risk_level"`
}

// MarketContext bundles the environmental facts the combiner uses to tilt and
// dampen the raw score. It is assembled once per decision cycle.
type MarketContext struct {
	Symbol    string           `json:"symbol"`
	Trend     string           `json:"trend"`
	Timeframe TimeframeProfile `json:"timeframe"`
	Macro     MacroProfile     `json:"macro"`
}

// timeframeProfiles is the fixed per-interval character table. Unknown
// intervals fall back to the 1h row.
var timeframeProfiles = map[string]TimeframeProfile{
	"1m":  {Interval: "1m", Class: ClassShort, NoiseLevel: NoiseHigh},
	"5m":  {Interval: "5m", Class: ClassShort, NoiseLevel: NoiseHigh},
	"15m": {Interval: "15m", Class: ClassShort, NoiseLevel: NoiseMedium},
	"30m": {Interval: "30m", Class: ClassBase, NoiseLevel: NoiseMedium},
	"1h":  {Interval: "1h", Class: ClassBase, NoiseLevel: NoiseMedium},
	"4h":  {Interval: "4h", Class: ClassLong, NoiseLevel: NoiseLow},
	"1d":  {Interval: "1d", Class: ClassLong, NoiseLevel: NoiseVeryLow},
}

// ProfileFor returns the static profile of a timeframe.
func ProfileFor(interval string) TimeframeProfile {
	if p, ok := timeframeProfiles[interval]; ok {
		return p
	}
	p := timeframeProfiles["1h"]
	p.Interval = interval
	return p
}

// cryptoQuotes are quote-currency suffixes that mark a symbol as crypto.
var cryptoQuotes = []string{"USDT", "USDC", "BUSD", "BTC", "ETH"}

// MacroFor classifies an instrument. Crypto pairs carry medium risk on major
// quote pairs and high risk otherwise; anything unrecognized is treated as a
// generic instrument at medium risk.
func MacroFor(symbol string) MacroProfile {
	upper := strings.ToUpper(symbol)
	for _, quote := range cryptoQuotes {
		if strings.HasSuffix(upper, quote) && len(upper) > len(quote) {
			risk := RiskMedium
			if strings.HasPrefix(upper, "BTC") || strings.HasPrefix(upper, "ETH") {
				risk = RiskLow
			}
			return MacroProfile{AssetClass: "crypto", RiskLevel: risk}
		}
	}
	return MacroProfile{AssetClass: "unknown", RiskLevel: RiskMedium}
}

// BuildContext assembles the market context for one decision cycle. The trend
// read compares structural highs and lows of the first and second half of the
// window: both rising reads bullish, both falling bearish, otherwise sideways.
func BuildContext(symbol, interval string, frame *indicators.Frame) MarketContext {
	ctx := MarketContext{
		Symbol:    symbol,
		Trend:     TrendSideways,
		Timeframe: ProfileFor(interval),
		Macro:     MacroFor(symbol),
	}
	if frame == nil || frame.Bars() < 4 {
		return ctx
	}

	klines := frame.Klines
	half := len(klines) / 2

	firstHigh, firstLow := extremes(klines[:half])
	secondHigh, secondLow := extremes(klines[half:])

	switch {
	case secondHigh > firstHigh && secondLow > firstLow:
		ctx.Trend = TrendBullish
	case secondHigh < firstHigh && secondLow < firstLow:
		ctx.Trend = TrendBearish
	}

	return ctx
}

func extremes(klines []market.Kline) (float64, float64) {
	high := klines[0].High
	low := klines[0].Low
	for _, k := range klines {
		if k.High > high {
			high = k.High
		}
		if k.Low < low {
			low = k.Low
		}
	}
	return high, low
}
