package analysis

import (
	"fmt"

	"signal-advisor/internal/indicators"
)

// minTechnicalBars is the smallest history the rule battery runs on. Below
// this the analyzer returns hold with zero confidence.
const minTechnicalBars = 20

const (
	weakFloor = 0.4 // Minimum aggregate strength for any directional call
	minMargin = 0.2 // Required lead over the opposing side for full conviction
)

// vote is a single indicator rule's contribution.
type vote struct {
	direction Direction
	strength  float64
	reason    string
}

// AnalyzeTechnical evaluates the fixed indicator rule battery against a frame
// and reduces the votes to a directional opinion. The function is pure: the
// same frame always yields the same analysis.
func AnalyzeTechnical(frame *indicators.Frame) PartialAnalysis {
	if frame == nil || frame.Bars() < minTechnicalBars {
		return HoldAnalysis("insufficient history for technical analysis")
	}

	votes := collectVotes(frame)
	return reduceVotes(votes)
}

// collectVotes runs every rule and returns the ordered vote list. Rules only
// fire when their indicator group was computed, so a frame with missing
// columns degrades gracefully.
func collectVotes(frame *indicators.Frame) []vote {
	votes := make([]vote, 0, 12)
	add := func(d Direction, strength float64, reason string) {
		votes = append(votes, vote{direction: d, strength: strength, reason: reason})
	}

	// RSI zones
	if frame.HasRSI {
		switch {
		case frame.RSI < 35:
			add(Buy, 0.7, fmt.Sprintf("RSI oversold: %.1f", frame.RSI))
		case frame.RSI > 65:
			add(Sell, 0.7, fmt.Sprintf("RSI overbought: %.1f", frame.RSI))
		case frame.RSI <= 50:
			add(Buy, 0.4, fmt.Sprintf("RSI in buy zone: %.1f", frame.RSI))
		default:
			add(Sell, 0.4, fmt.Sprintf("RSI in sell zone: %.1f", frame.RSI))
		}
	}

	// MACD vs signal line, crossovers weighted above mere position
	if frame.HasMACD {
		if frame.MACD > frame.MACDSignal {
			if frame.PrevMACD <= frame.PrevMACDSignal {
				add(Buy, 0.8, "MACD bullish crossover")
			} else {
				add(Buy, 0.5, "MACD above signal line")
			}
		} else if frame.MACD < frame.MACDSignal {
			if frame.PrevMACD >= frame.PrevMACDSignal {
				add(Sell, 0.8, "MACD bearish crossover")
			} else {
				add(Sell, 0.5, "MACD below signal line")
			}
		}
	}

	// Position inside the Bollinger channel
	if frame.HasBB && frame.BBUpper > frame.BBLower {
		pos := (frame.LastClose() - frame.BBLower) / (frame.BBUpper - frame.BBLower)
		switch {
		case pos <= 0.2:
			add(Buy, 0.6, "Price near lower Bollinger Band")
		case pos >= 0.8:
			add(Sell, 0.6, "Price near upper Bollinger Band")
		case pos <= 0.4:
			add(Buy, 0.3, "Price in lower BB zone")
		case pos >= 0.6:
			add(Sell, 0.3, "Price in upper BB zone")
		}
	}

	// EMA 12/26 trend
	if frame.HasEMA {
		if frame.EMA12 > frame.EMA26 {
			if frame.PrevEMA12 <= frame.PrevEMA26 {
				add(Buy, 0.7, "EMA 12/26 bullish crossover")
			} else {
				add(Buy, 0.4, "EMA 12 above EMA 26")
			}
		} else {
			if frame.PrevEMA12 >= frame.PrevEMA26 {
				add(Sell, 0.7, "EMA 12/26 bearish crossover")
			} else {
				add(Sell, 0.4, "EMA 12 below EMA 26")
			}
		}
	}

	// Stochastic zones
	if frame.HasStoch {
		if frame.StochK < 25 {
			if frame.StochK > frame.StochD {
				add(Buy, 0.6, "Stochastic oversold with bullish signal")
			} else {
				add(Buy, 0.3, "Stochastic oversold")
			}
		} else if frame.StochK > 75 {
			if frame.StochK < frame.StochD {
				add(Sell, 0.6, "Stochastic overbought with bearish signal")
			} else {
				add(Sell, 0.3, "Stochastic overbought")
			}
		}
	}

	// ADX trend strength with directional indexes
	if frame.HasADX && frame.ADX > 20 {
		if frame.PlusDI > frame.MinusDI {
			add(Buy, 0.5, fmt.Sprintf("Uptrend detected (ADX: %.1f)", frame.ADX))
		} else {
			add(Sell, 0.5, fmt.Sprintf("Downtrend detected (ADX: %.1f)", frame.ADX))
		}
	}

	// Candlestick patterns on the latest bar
	if frame.Hammer {
		add(Buy, 0.5, "Hammer candlestick pattern")
	}
	if frame.ShootingStar {
		add(Sell, 0.5, "Shooting star candlestick pattern")
	}
	if frame.BullishEngulfing {
		add(Buy, 0.6, "Bullish engulfing pattern")
	}
	if frame.BearishEngulfing {
		add(Sell, 0.6, "Bearish engulfing pattern")
	}

	return votes
}

// reduceVotes folds the vote list into a decision. The policy:
//   - below the weak floor on both sides: hold
//   - a side leading by the minimum margin wins at strength/2.0 (capped 1.0)
//   - a side leading by less wins discounted at strength/3.0 (capped 0.6)
//   - an exact tie at or above the floor goes to the side with the strongest
//     single vote, buy on equality, at strength/2.2 (capped 0.6)
func reduceVotes(votes []vote) PartialAnalysis {
	buyStrength := 0.0
	sellStrength := 0.0
	maxBuy := 0.0
	maxSell := 0.0
	reasons := make([]string, 0, len(votes))

	for _, v := range votes {
		reasons = append(reasons, v.reason)
		switch v.direction {
		case Buy:
			buyStrength += v.strength
			if v.strength > maxBuy {
				maxBuy = v.strength
			}
		case Sell:
			sellStrength += v.strength
			if v.strength > maxSell {
				maxSell = v.strength
			}
		}
	}

	metrics := map[string]float64{
		"buy_strength":  buyStrength,
		"sell_strength": sellStrength,
	}

	result := PartialAnalysis{Direction: Hold, Confidence: 0, Reasons: reasons, Metrics: metrics}

	switch {
	case buyStrength >= weakFloor && buyStrength > sellStrength+minMargin:
		result.Direction = Buy
		result.Confidence = min(buyStrength/2.0, 1.0)
	case sellStrength >= weakFloor && sellStrength > buyStrength+minMargin:
		result.Direction = Sell
		result.Confidence = min(sellStrength/2.0, 1.0)
	case buyStrength >= weakFloor && buyStrength > sellStrength:
		result.Direction = Buy
		result.Confidence = min(buyStrength/3.0, 0.6)
	case sellStrength >= weakFloor && sellStrength > buyStrength:
		result.Direction = Sell
		result.Confidence = min(sellStrength/3.0, 0.6)
	case buyStrength >= weakFloor && buyStrength == sellStrength:
		if maxBuy >= maxSell {
			result.Direction = Buy
			result.Confidence = min(buyStrength/2.2, 0.6)
		} else {
			result.Direction = Sell
			result.Confidence = min(sellStrength/2.2, 0.6)
		}
	}

	return result
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
