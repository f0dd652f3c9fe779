package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signal-advisor/config"
	"signal-advisor/internal/analysis"
	"signal-advisor/internal/events"
	"signal-advisor/internal/indicators"
	"signal-advisor/internal/market"
	"signal-advisor/internal/predictor"
)

// predictTimeout bounds one predictor call so a slow model cannot stall the
// decision cycle.
const predictTimeout = 2 * time.Second

// Engine runs the full decision cycle for one symbol/timeframe pair:
// guards, data fetch, parallel analysis, score combination, gate decision,
// level calculation and registration.
type Engine struct {
	cfg      *config.Config
	market   market.DataProvider
	predict  *predictor.Adapter
	gate     *Gate
	levels   *Levels
	registry *Registry
	bus      *events.Bus
	log      zerolog.Logger

	// Analyzer hooks, overridable in tests
	analyzeTechnical  func(*indicators.Frame) analysis.PartialAnalysis
	analyzeVolume     func(*indicators.Frame) analysis.PartialAnalysis
	analyzeVolatility func(*indicators.Frame) analysis.PartialAnalysis
}

// New creates an engine. The bus may be nil when nothing listens for events.
func New(cfg *config.Config, provider market.DataProvider, pred *predictor.Adapter, registry *Registry, bus *events.Bus, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		market:   provider,
		predict:  pred,
		gate:     NewGate(cfg.SignalConfig),
		levels:   NewLevels(cfg.RiskConfig),
		registry: registry,
		bus:      bus,
		log:      log.With().Str("component", "engine").Logger(),

		analyzeTechnical:  analysis.AnalyzeTechnical,
		analyzeVolume:     analysis.AnalyzeVolume,
		analyzeVolatility: analysis.AnalyzeVolatility,
	}
}

// Registry exposes the signal book of record.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Generate runs one decision cycle. The cooldown is checked before any
// market data is fetched, and the per-symbol lock is held across the guard
// check and the register so concurrent cycles cannot both emit inside one
// cooldown window. A suppressed cycle is not an error: the outcome carries
// the reason.
func (e *Engine) Generate(ctx context.Context, symbol, interval string) (Outcome, error) {
	unlock := e.registry.LockSymbol(symbol)
	defer unlock()

	if active, remaining := e.registry.IsInCooldown(symbol); active {
		e.log.Debug().Str("symbol", symbol).Dur("remaining", remaining).Msg("cooldown active, cycle skipped")
		return Outcome{Reason: fmt.Sprintf("cooldown active (%s remaining)", remaining.Round(time.Second))}, nil
	}
	klines, err := e.market.GetKlines(symbol, interval, e.cfg.MarketConfig.HistoryLimit)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch klines for %s: %w", symbol, err)
	}
	frame := indicators.Compute(klines)

	evidence := e.collectEvidence(ctx, symbol, frame)
	marketCtx := analysis.BuildContext(symbol, interval, frame)

	score := Combine(evidence["technical"], evidence["prediction"], evidence["volume"], evidence["volatility"], marketCtx)
	decision := e.gate.Decide(score, evidence)
	if !decision.Emit {
		e.log.Debug().
			Str("symbol", symbol).
			Float64("buy_score", score.BuyScore).
			Float64("sell_score", score.SellScore).
			Str("reason", decision.Reason).
			Msg("no signal emitted")
		return Outcome{Reason: decision.Reason, Evidence: evidence}, nil
	}

	// Levels anchor on the live ticker: the final kline can lag it. An
	// unavailable ticker falls back to the last close rather than
	// suppressing the cycle.
	entry := frame.LastClose()
	if price, err := e.market.GetCurrentPrice(symbol); err == nil && price > 0 {
		entry = price
	} else if err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("ticker unavailable, entry from last close")
	}
	stopLoss, takeProfit := e.levels.Compute(decision.Direction, interval, entry, frame.ATR)

	now := time.Now()
	sig := &Signal{
		ID:         NewSignalID(symbol, now),
		Symbol:     symbol,
		Interval:   interval,
		Direction:  decision.Direction,
		Strength:   decision.Strength,
		Confidence: decision.Confidence,
		EntryPrice: entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Reasons:    score.Reasons,
		CreatedAt:  now,
	}

	if err := e.registry.Register(sig); err != nil {
		// The rolling-hour cap and the duplicate-ID guard both live inside
		// Register so the check and the append are atomic. A refusal is a
		// suppression, not a failure: the cycle still returns its evidence.
		return Outcome{Reason: err.Error(), Evidence: evidence}, nil
	}

	e.log.Info().
		Str("symbol", symbol).
		Str("direction", sig.Direction).
		Str("strength", sig.Strength).
		Float64("confidence", sig.Confidence).
		Float64("entry", sig.EntryPrice).
		Msg("signal generated")

	if e.bus != nil {
		e.bus.Publish(events.SignalGenerated, *sig)
	}

	return Outcome{Signal: sig, Evidence: evidence}, nil
}

// collectEvidence runs the analyzers concurrently and returns their opinions
// keyed by source name.
func (e *Engine) collectEvidence(ctx context.Context, symbol string, frame *indicators.Frame) map[string]analysis.PartialAnalysis {
	var (
		wg         sync.WaitGroup
		technical  analysis.PartialAnalysis
		prediction analysis.PartialAnalysis
		volume     analysis.PartialAnalysis
		volatility analysis.PartialAnalysis
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		technical = e.analyzeTechnical(frame)
	}()
	go func() {
		defer wg.Done()
		predictCtx, cancel := context.WithTimeout(ctx, predictTimeout)
		defer cancel()
		prediction = e.predict.Analyze(predictCtx, symbol, frame)
	}()
	go func() {
		defer wg.Done()
		volume = e.analyzeVolume(frame)
	}()
	go func() {
		defer wg.Done()
		volatility = e.analyzeVolatility(frame)
	}()
	wg.Wait()

	return map[string]analysis.PartialAnalysis{
		"technical":  technical,
		"prediction": prediction,
		"volume":     volume,
		"volatility": volatility,
	}
}

// UpdateStatus transitions a signal's lifecycle state and publishes the
// change.
func (e *Engine) UpdateStatus(id, status string) (*Signal, error) {
	sig, err := e.registry.UpdateStatus(id, status)
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("signal_id", id).Str("status", status).Msg("signal status updated")
	if e.bus != nil {
		e.bus.Publish(events.SignalStatusChanged, *sig)
	}
	return sig, nil
}
