package analysis

import (
	"testing"

	"signal-advisor/internal/indicators"
)

func TestAnalyzeVolatilityInsufficientHistory(t *testing.T) {
	closes := []float64{100, 105, 95, 110}
	frame := indicators.Compute(makeKlines(closes))

	result := AnalyzeVolatility(frame)
	if result.Direction != Hold {
		t.Errorf("expected hold on short history, got %s", result.Direction)
	}
}

func TestAnalyzeVolatilityCautionOnExpansion(t *testing.T) {
	// Dead calm for 40 bars, then violent swings in the current window
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	for i := 40; i < 60; i++ {
		if i%2 == 0 {
			closes[i] = 200
		}
	}

	result := AnalyzeVolatility(indicators.Compute(makeKlines(closes)))
	if result.Direction != Caution {
		t.Fatalf("expected caution on volatility expansion, got %s", result.Direction)
	}
	if result.Confidence != 0.3 {
		t.Errorf("expected confidence 0.3, got %f", result.Confidence)
	}
	if result.Metrics["volatility_ratio"] <= 1.5 {
		t.Errorf("ratio should exceed caution threshold, got %f", result.Metrics["volatility_ratio"])
	}
}

func TestAnalyzeVolatilityPrepareOnCompression(t *testing.T) {
	// Violent swings early, then a dead calm current window
	closes := make([]float64, 60)
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			closes[i] = 200
		} else {
			closes[i] = 100
		}
	}
	for i := 40; i < 60; i++ {
		closes[i] = 150
	}

	result := AnalyzeVolatility(indicators.Compute(makeKlines(closes)))
	if result.Direction != Prepare {
		t.Fatalf("expected prepare on volatility compression, got %s", result.Direction)
	}
	if result.Confidence != 0.4 {
		t.Errorf("expected confidence 0.4, got %f", result.Confidence)
	}
}

func TestAnalyzeVolatilityNormalRegime(t *testing.T) {
	// Uniform oscillation keeps every window at the same deviation
	closes := make([]float64, 60)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 110
		}
	}

	result := AnalyzeVolatility(indicators.Compute(makeKlines(closes)))
	if result.Direction != Normal {
		t.Fatalf("expected normal regime, got %s", result.Direction)
	}
	if result.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5, got %f", result.Confidence)
	}
}

func TestAnalyzeVolatilityFlatHistory(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}

	result := AnalyzeVolatility(indicators.Compute(makeKlines(closes)))
	if result.Direction != Normal {
		t.Errorf("expected normal on flat history, got %s", result.Direction)
	}
}
