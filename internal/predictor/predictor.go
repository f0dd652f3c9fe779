package predictor

import (
	"context"
	"fmt"

	"signal-advisor/internal/analysis"
	"signal-advisor/internal/indicators"
)

// Predictor produces a directional forecast for a symbol from an indicator
// frame. Direction is -1 (down), 0 (flat) or 1 (up). Implementations should
// honor ctx cancellation when they call out of process.
type Predictor interface {
	Predict(ctx context.Context, symbol string, frame *indicators.Frame) (direction int, confidence float64, err error)
}

// Adapter wraps a Predictor as an analyzer. Prediction failures and timeouts
// degrade to a neutral opinion with the error recorded as evidence, so a
// broken predictor never blocks the decision cycle.
type Adapter struct {
	predictor Predictor
}

// NewAdapter wraps p. A nil predictor yields an adapter that always holds.
func NewAdapter(p Predictor) *Adapter {
	return &Adapter{predictor: p}
}

// Analyze runs the forecast and maps it onto a directional opinion.
func (a *Adapter) Analyze(ctx context.Context, symbol string, frame *indicators.Frame) analysis.PartialAnalysis {
	if a == nil || a.predictor == nil {
		return analysis.HoldAnalysis("no predictor configured")
	}

	direction, confidence, err := a.predictor.Predict(ctx, symbol, frame)
	if err != nil {
		return analysis.HoldAnalysis(fmt.Sprintf("prediction unavailable: %v", err))
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	switch {
	case direction > 0:
		return analysis.PartialAnalysis{
			Direction:  analysis.Buy,
			Confidence: confidence,
			Reasons:    []string{fmt.Sprintf("Model predicts upward move (confidence: %.2f)", confidence)},
		}
	case direction < 0:
		return analysis.PartialAnalysis{
			Direction:  analysis.Sell,
			Confidence: confidence,
			Reasons:    []string{fmt.Sprintf("Model predicts downward move (confidence: %.2f)", confidence)},
		}
	default:
		return analysis.HoldAnalysis("model predicts no clear move")
	}
}
