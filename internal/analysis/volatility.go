package analysis

import (
	"fmt"
	"math"

	"signal-advisor/internal/indicators"
)

// volatilityWindow is the bar count of each volatility sample.
const volatilityWindow = 20

// AnalyzeVolatility compares the current close-price deviation against its
// rolling average. Expanded volatility asks the combiner for caution, a
// compressed regime flags a potential breakout setup, anything else is the
// normal regime.
func AnalyzeVolatility(frame *indicators.Frame) PartialAnalysis {
	if frame == nil || frame.Bars() < volatilityWindow {
		return HoldAnalysis("insufficient history for volatility analysis")
	}

	closes := make([]float64, frame.Bars())
	for i, k := range frame.Klines {
		closes[i] = k.Close
	}

	current := stdDev(closes[len(closes)-volatilityWindow:])
	average := rollingStdAverage(closes, volatilityWindow)

	metrics := map[string]float64{
		"volatility":     current,
		"volatility_avg": average,
	}

	if average <= 0 {
		return PartialAnalysis{Direction: Normal, Confidence: 0.5, Reasons: []string{"Flat price history"}, Metrics: metrics}
	}

	ratio := current / average
	metrics["volatility_ratio"] = ratio

	switch {
	case ratio > 1.5:
		return PartialAnalysis{
			Direction:  Caution,
			Confidence: 0.3,
			Reasons:    []string{fmt.Sprintf("High volatility detected (%.1fx average)", ratio)},
			Metrics:    metrics,
		}
	case ratio < 0.5:
		return PartialAnalysis{
			Direction:  Prepare,
			Confidence: 0.4,
			Reasons:    []string{"Low volatility, potential breakout setup"},
			Metrics:    metrics,
		}
	default:
		return PartialAnalysis{
			Direction:  Normal,
			Confidence: 0.5,
			Reasons:    []string{"Normal volatility"},
			Metrics:    metrics,
		}
	}
}

// rollingStdAverage averages the standard deviation of every full window in
// the history. The current window is included, so on exactly one window the
// ratio is 1 and the regime reads normal.
func rollingStdAverage(closes []float64, window int) float64 {
	count := 0
	sum := 0.0
	for end := window; end <= len(closes); end++ {
		sum += stdDev(closes[end-window : end])
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func stdDev(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}
