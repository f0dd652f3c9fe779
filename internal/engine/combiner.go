package engine

import (
	"fmt"

	"signal-advisor/internal/analysis"
)

// analyzerWeights is one timeframe class's weighting of the four opinion
// sources. The context slot never contributes an additive score, but it
// still occupies weight so that the directional analyzers cannot claim its
// share when it is the only silent source.
type analyzerWeights struct {
	technical float64
	predictor float64
	volume    float64
	context   float64
}

var weightsByClass = map[string]analyzerWeights{
	analysis.ClassShort: {technical: 0.40, predictor: 0.15, volume: 0.35, context: 0.10},
	analysis.ClassBase:  {technical: 0.45, predictor: 0.20, volume: 0.25, context: 0.10},
	analysis.ClassLong:  {technical: 0.50, predictor: 0.25, volume: 0.15, context: 0.10},
}

// CombinedScore is the weighted, context-adjusted pair of directional scores
// a decision gate turns into a signal.
type CombinedScore struct {
	BuyScore  float64
	SellScore float64
	Reasons   []string
}

// Diff returns the buy/sell score spread.
func (c CombinedScore) Diff() float64 {
	return c.BuyScore - c.SellScore
}

// Combine folds the analyzer opinions into a directional score pair. Holding
// analyzers surrender their weight slot and the rest are renormalized, so a
// silent predictor makes the others proportionally louder. Context facts are
// applied multiplicatively after the additive pass, in fixed order: timeframe
// noise, trend alignment, asset class, macro risk, volatility regime.
func Combine(
	technical, prediction, volume, volatility analysis.PartialAnalysis,
	ctx analysis.MarketContext,
) CombinedScore {
	weights, ok := weightsByClass[ctx.Timeframe.Class]
	if !ok {
		weights = weightsByClass[analysis.ClassBase]
	}

	// Renormalize over the slots that actually have an opinion. Context is
	// always present.
	active := weights.context
	if directional(technical) {
		active += weights.technical
	}
	if directional(prediction) {
		active += weights.predictor
	}
	if directional(volume) || volume.Direction == analysis.Confirm {
		active += weights.volume
	}
	if active <= 0 {
		return CombinedScore{}
	}
	scale := 1.0 / active

	var score CombinedScore
	addOpinion := func(p analysis.PartialAnalysis, weight float64) {
		w := weight * scale * p.Confidence
		switch p.Direction {
		case analysis.Buy:
			score.BuyScore += w
		case analysis.Sell:
			score.SellScore += w
		}
		score.Reasons = append(score.Reasons, p.Reasons...)
	}

	addOpinion(technical, weights.technical)
	addOpinion(prediction, weights.predictor)

	// Volume confirmation is direction-agnostic: it raises both sides,
	// lifting the winner's magnitude without moving the spread. A directional
	// volume read contributes like any other analyzer.
	if volume.Direction == analysis.Confirm {
		w := weights.volume * scale * volume.Confidence
		score.BuyScore += w
		score.SellScore += w
		score.Reasons = append(score.Reasons, volume.Reasons...)
	} else {
		addOpinion(volume, weights.volume)
	}

	applyContext(&score, volatility, ctx)

	return score
}

// noiseMultipliers dampen or amplify by timeframe choppiness.
var noiseMultipliers = map[string]float64{
	analysis.NoiseVeryLow: 1.3,
	analysis.NoiseLow:     1.15,
	analysis.NoiseMedium:  1.0,
	analysis.NoiseHigh:    0.8,
}

var riskMultipliers = map[string]float64{
	analysis.RiskLow:    1.1,
	analysis.RiskMedium: 1.0,
	analysis.RiskHigh:   0.9,
}

func applyContext(score *CombinedScore, volatility analysis.PartialAnalysis, ctx analysis.MarketContext) {
	if m, ok := noiseMultipliers[ctx.Timeframe.NoiseLevel]; ok && m != 1.0 {
		score.BuyScore *= m
		score.SellScore *= m
		if m < 1.0 {
			score.Reasons = append(score.Reasons, fmt.Sprintf("Signal dampened on noisy %s timeframe", ctx.Timeframe.Interval))
		}
	}

	switch ctx.Trend {
	case analysis.TrendBullish:
		score.BuyScore *= 1.2
		score.Reasons = append(score.Reasons, "Aligned with bullish market trend")
	case analysis.TrendBearish:
		score.SellScore *= 1.2
		score.Reasons = append(score.Reasons, "Aligned with bearish market trend")
	}

	if ctx.Macro.AssetClass == "crypto" {
		score.BuyScore *= 1.1
		score.SellScore *= 1.1
	}

	if m, ok := riskMultipliers[ctx.Macro.RiskLevel]; ok && m != 1.0 {
		score.BuyScore *= m
		score.SellScore *= m
	}

	if volatility.Direction == analysis.Caution {
		score.BuyScore *= 0.8
		score.SellScore *= 0.8
		score.Reasons = append(score.Reasons, volatility.Reasons...)
	}
}

func directional(p analysis.PartialAnalysis) bool {
	return p.Direction == analysis.Buy || p.Direction == analysis.Sell
}
