package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"signal-advisor/config"
	"signal-advisor/internal/analysis"
	"signal-advisor/internal/indicators"
	"signal-advisor/internal/market"
	"signal-advisor/internal/predictor"
)

func testEngine(cfg *config.Config) *Engine {
	registry := NewRegistry(cfg.SignalConfig)
	return New(cfg, market.NewMockClient(), predictor.NewAdapter(nil), registry, nil, zerolog.Nop())
}

// forceOpinion replaces an engine's analyzers with fixed outputs and counts
// technical invocations.
func forceOpinion(e *Engine, technical analysis.PartialAnalysis, calls *atomic.Int32) {
	e.analyzeTechnical = func(*indicators.Frame) analysis.PartialAnalysis {
		calls.Add(1)
		return technical
	}
	e.analyzeVolume = func(*indicators.Frame) analysis.PartialAnalysis {
		return analysis.HoldAnalysis()
	}
	e.analyzeVolatility = func(*indicators.Frame) analysis.PartialAnalysis {
		return analysis.PartialAnalysis{Direction: analysis.Normal, Confidence: 0.5}
	}
}

func TestGenerateEmitsSignal(t *testing.T) {
	cfg := config.Default()
	cfg.MarketConfig.MockMode = true
	e := testEngine(cfg)

	var calls atomic.Int32
	forceOpinion(e, analysis.PartialAnalysis{Direction: analysis.Buy, Confidence: 0.9}, &calls)

	outcome, err := e.Generate(context.Background(), "BTCUSDT", "1h")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !outcome.Emitted() {
		t.Fatalf("expected signal, got reason %q", outcome.Reason)
	}

	sig := outcome.Signal
	if sig.Symbol != "BTCUSDT" || sig.Interval != "1h" {
		t.Errorf("unexpected identity: %s/%s", sig.Symbol, sig.Interval)
	}
	if sig.Direction != "buy" {
		t.Errorf("direction = %s, want buy", sig.Direction)
	}
	if sig.Status != StatusActive {
		t.Errorf("status = %s, want active", sig.Status)
	}
	if sig.EntryPrice <= 0 {
		t.Errorf("entry price missing: %f", sig.EntryPrice)
	}
	if !(sig.StopLoss < sig.EntryPrice && sig.EntryPrice < sig.TakeProfit) {
		t.Errorf("levels out of order: sl %f entry %f tp %f", sig.StopLoss, sig.EntryPrice, sig.TakeProfit)
	}
	if len(outcome.Evidence) != 4 {
		t.Errorf("expected evidence from all four sources, got %d", len(outcome.Evidence))
	}

	if active := e.Registry().GetActive(); len(active) != 1 {
		t.Errorf("signal not registered: %d active", len(active))
	}
}

func TestGenerateCooldownShortCircuitsAnalysis(t *testing.T) {
	cfg := config.Default()
	cfg.MarketConfig.MockMode = true
	e := testEngine(cfg)

	var calls atomic.Int32
	forceOpinion(e, analysis.PartialAnalysis{Direction: analysis.Buy, Confidence: 0.9}, &calls)

	outcome, err := e.Generate(context.Background(), "BTCUSDT", "1h")
	if err != nil || !outcome.Emitted() {
		t.Fatalf("first cycle should emit: %v / %q", err, outcome.Reason)
	}
	after := calls.Load()

	outcome, err = e.Generate(context.Background(), "BTCUSDT", "1h")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if outcome.Emitted() {
		t.Fatal("expected cooldown suppression")
	}
	if outcome.Reason == "" {
		t.Error("expected a suppression reason")
	}
	if calls.Load() != after {
		t.Error("cooldown must short-circuit before analysis runs")
	}
}

func TestGenerateHourlyCap(t *testing.T) {
	cfg := config.Default()
	cfg.MarketConfig.MockMode = true
	cfg.SignalConfig.SignalCooldownMinutes = 0
	cfg.SignalConfig.MaxSignalsPerHour = 1
	e := testEngine(cfg)

	var calls atomic.Int32
	forceOpinion(e, analysis.PartialAnalysis{Direction: analysis.Buy, Confidence: 0.9}, &calls)

	outcome, err := e.Generate(context.Background(), "BTCUSDT", "1h")
	if err != nil || !outcome.Emitted() {
		t.Fatalf("first cycle should emit: %v / %q", err, outcome.Reason)
	}

	outcome, err = e.Generate(context.Background(), "ETHUSDT", "1h")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if outcome.Emitted() {
		t.Fatal("expected hourly cap to suppress across symbols")
	}
}

// tickerStub serves the mock kline feed with a controllable ticker price.
type tickerStub struct {
	*market.MockClient
	price float64
	err   error
}

func (s *tickerStub) GetCurrentPrice(string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.price, nil
}

func TestGenerateEntryFromTicker(t *testing.T) {
	cfg := config.Default()
	cfg.MarketConfig.MockMode = true
	provider := &tickerStub{MockClient: market.NewMockClient(), price: 123456}
	e := New(cfg, provider, predictor.NewAdapter(nil), NewRegistry(cfg.SignalConfig), nil, zerolog.Nop())

	var calls atomic.Int32
	forceOpinion(e, analysis.PartialAnalysis{Direction: analysis.Buy, Confidence: 0.9}, &calls)

	outcome, err := e.Generate(context.Background(), "BTCUSDT", "1h")
	if err != nil || !outcome.Emitted() {
		t.Fatalf("expected signal: %v / %q", err, outcome.Reason)
	}

	sig := outcome.Signal
	if sig.EntryPrice != 123456 {
		t.Errorf("entry = %f, want the ticker price 123456", sig.EntryPrice)
	}
	if !(sig.StopLoss < sig.EntryPrice && sig.EntryPrice < sig.TakeProfit) {
		t.Errorf("levels must bracket the ticker entry: sl %f entry %f tp %f", sig.StopLoss, sig.EntryPrice, sig.TakeProfit)
	}
}

func TestGenerateEntryFallsBackToLastClose(t *testing.T) {
	cfg := config.Default()
	cfg.MarketConfig.MockMode = true
	provider := &tickerStub{MockClient: market.NewMockClient(), err: errors.New("ticker unavailable")}
	e := New(cfg, provider, predictor.NewAdapter(nil), NewRegistry(cfg.SignalConfig), nil, zerolog.Nop())

	var calls atomic.Int32
	forceOpinion(e, analysis.PartialAnalysis{Direction: analysis.Buy, Confidence: 0.9}, &calls)

	outcome, err := e.Generate(context.Background(), "BTCUSDT", "1h")
	if err != nil || !outcome.Emitted() {
		t.Fatalf("ticker failure must not suppress the cycle: %v / %q", err, outcome.Reason)
	}

	klines, err := provider.GetKlines("BTCUSDT", "1h", cfg.MarketConfig.HistoryLimit)
	if err != nil {
		t.Fatalf("klines: %v", err)
	}
	if want := klines[len(klines)-1].Close; outcome.Signal.EntryPrice != want {
		t.Errorf("entry = %f, want last close %f", outcome.Signal.EntryPrice, want)
	}
}

func TestGenerateNoSignalOnWeakEvidence(t *testing.T) {
	cfg := config.Default()
	cfg.MarketConfig.MockMode = true
	e := testEngine(cfg)

	var calls atomic.Int32
	forceOpinion(e, analysis.HoldAnalysis("nothing to see"), &calls)

	outcome, err := e.Generate(context.Background(), "BTCUSDT", "1h")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if outcome.Emitted() {
		t.Fatal("expected no signal from neutral evidence")
	}
	if len(outcome.Evidence) != 4 {
		t.Errorf("suppressed outcome must still carry evidence, got %d sources", len(outcome.Evidence))
	}

	// Suppressed cycles do not start a cooldown
	if active, _ := e.Registry().IsInCooldown("BTCUSDT"); active {
		t.Error("suppression must not start a cooldown")
	}
}

func TestEngineUpdateStatus(t *testing.T) {
	cfg := config.Default()
	cfg.MarketConfig.MockMode = true
	e := testEngine(cfg)

	var calls atomic.Int32
	forceOpinion(e, analysis.PartialAnalysis{Direction: analysis.Buy, Confidence: 0.9}, &calls)

	outcome, err := e.Generate(context.Background(), "BTCUSDT", "1h")
	if err != nil || !outcome.Emitted() {
		t.Fatalf("setup emit failed: %v / %q", err, outcome.Reason)
	}

	sig, err := e.UpdateStatus(outcome.Signal.ID, StatusClosed)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if sig.Status != StatusClosed {
		t.Errorf("status = %s, want closed", sig.Status)
	}
}
