package predictor

import (
	"context"

	"signal-advisor/internal/indicators"
)

// momentumBars is the lookback for the rate-of-change read.
const momentumBars = 10

// Momentum is the default in-process predictor: a rate-of-change forecast
// over recent closes, confirmed by MACD slope. It exists so the engine has a
// working predictor without an external model service.
type Momentum struct{}

// NewMomentum creates the in-process momentum predictor.
func NewMomentum() *Momentum {
	return &Momentum{}
}

// Predict forecasts from the close-price rate of change over the lookback.
// MACD agreement scales confidence up, disagreement scales it down.
func (m *Momentum) Predict(_ context.Context, _ string, frame *indicators.Frame) (int, float64, error) {
	if frame == nil || frame.Bars() < momentumBars+1 {
		return 0, 0, nil
	}

	klines := frame.Klines
	last := klines[len(klines)-1].Close
	ref := klines[len(klines)-1-momentumBars].Close
	if ref == 0 {
		return 0, 0, nil
	}

	roc := (last - ref) / ref
	if roc > -0.002 && roc < 0.002 {
		return 0, 0, nil
	}

	// Base confidence grows with the magnitude of the move, saturating at 0.8
	confidence := roc * 40
	if confidence < 0 {
		confidence = -confidence
	}
	if confidence > 0.8 {
		confidence = 0.8
	}

	direction := 1
	if roc < 0 {
		direction = -1
	}

	if frame.HasMACD {
		macdUp := frame.MACD > frame.MACDSignal
		if (direction > 0) == macdUp {
			confidence *= 1.2
			if confidence > 0.9 {
				confidence = 0.9
			}
		} else {
			confidence *= 0.6
		}
	}

	return direction, confidence, nil
}
