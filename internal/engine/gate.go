package engine

import (
	"fmt"
	"math"

	"signal-advisor/config"
	"signal-advisor/internal/analysis"
)

// minScoreSpread is the dead zone below which the score pair reads as noise.
const minScoreSpread = 0.05

// Decision is the gate's verdict on a combined score.
type Decision struct {
	Emit       bool
	Direction  string
	Strength   string
	Confidence float64
	Reason     string // Set when Emit is false
}

// Gate turns combined scores into emit/suppress decisions by threshold tier.
// The weak tier additionally demands confluence: multiple independent
// analyzers backing the same side.
type Gate struct {
	cfg config.SignalConfig
}

// NewGate creates a decision gate with the given thresholds.
func NewGate(cfg config.SignalConfig) *Gate {
	return &Gate{cfg: cfg}
}

// Decide classifies a combined score into a strength tier. A spread inside
// the dead zone reads as ambiguous; otherwise the winning score picks the
// tier and scales the emitted confidence, with each tier capping lower so
// that a weak signal can never outrank a strong one.
func (g *Gate) Decide(score CombinedScore, evidence map[string]analysis.PartialAnalysis) Decision {
	diff := score.Diff()
	if math.Abs(diff) < minScoreSpread {
		return Decision{Reason: fmt.Sprintf("scores too close (buy %.3f / sell %.3f)", score.BuyScore, score.SellScore)}
	}

	direction := analysis.Buy
	winning := score.BuyScore
	if diff < 0 {
		direction = analysis.Sell
		winning = score.SellScore
	}

	var decision Decision
	switch {
	case winning > g.cfg.StrongSignalThreshold:
		decision = Decision{
			Emit:       true,
			Direction:  string(direction),
			Strength:   StrengthStrong,
			Confidence: capped(winning*0.85, 0.75),
		}
	case winning > g.cfg.MediumSignalThreshold:
		decision = Decision{
			Emit:       true,
			Direction:  string(direction),
			Strength:   StrengthMedium,
			Confidence: capped(winning*0.7, 0.55),
		}
	case winning > g.cfg.WeakSignalThreshold:
		if g.cfg.EnableConfluence && !g.hasConfluence(direction, evidence) {
			return Decision{Reason: "weak signal without confluence"}
		}
		decision = Decision{
			Emit:       true,
			Direction:  string(direction),
			Strength:   StrengthWeak,
			Confidence: capped(winning*0.6, 0.35),
		}
	default:
		return Decision{Reason: fmt.Sprintf("winning score %.3f below weak threshold", winning)}
	}

	if decision.Confidence < g.cfg.MinConfidence {
		return Decision{Reason: fmt.Sprintf("confidence %.3f below configured minimum", decision.Confidence)}
	}
	return decision
}

// hasConfluence checks that enough independent sources back the winning side.
// Two tests, either suffices: enough analyzers clear their per-source
// confidence bar, or enough raw directions already agree with the winner.
func (g *Gate) hasConfluence(direction analysis.Direction, evidence map[string]analysis.PartialAnalysis) bool {
	technical := evidence["technical"]
	prediction := evidence["prediction"]
	volume := evidence["volume"]

	confident := 0
	if technical.Direction == direction && technical.Confidence > 0.3 {
		confident++
	}
	if prediction.Direction == direction && prediction.Confidence > 0.4 {
		confident++
	}
	if volume.Direction != analysis.Hold && volume.Confidence > 0.3 {
		confident++
	}
	if confident >= g.cfg.MinConfluenceCount {
		return true
	}

	agreeing := 0
	for _, p := range []analysis.PartialAnalysis{technical, prediction, volume} {
		if p.Direction == direction {
			agreeing++
		}
	}
	return agreeing >= g.cfg.MinConfluenceCount
}

func capped(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}
