package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"signal-advisor/config"
	"signal-advisor/internal/engine"
	"signal-advisor/internal/events"
	"signal-advisor/internal/market"
	"signal-advisor/internal/predictor"
)

func TestSweepCoversAllPairs(t *testing.T) {
	cfg := config.Default()
	cfg.MarketConfig.MockMode = true
	cfg.ScannerConfig = config.ScannerConfig{
		Enabled:      true,
		ScanInterval: 3600,
		WorkerCount:  2,
		Timeframe:    "1h",
	}

	pairs := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	bus := events.NewBus(zerolog.Nop())
	defer bus.Close()

	registry := engine.NewRegistry(cfg.SignalConfig)
	eng := engine.New(cfg, market.NewMockClient(), predictor.NewAdapter(predictor.NewMomentum()), registry, nil, zerolog.Nop())

	results := bus.Subscribe(events.ScanComplete)
	s := New(cfg.ScannerConfig, pairs, eng, bus, zerolog.Nop())
	s.sweep(context.Background())

	select {
	case event := <-results:
		result, ok := event.Data.(SweepResult)
		if !ok {
			t.Fatalf("unexpected payload type %T", event.Data)
		}
		if result.Scanned != len(pairs) {
			t.Errorf("scanned = %d, want %d", result.Scanned, len(pairs))
		}
		if result.Emitted+result.Suppressed+result.Errors != result.Scanned {
			t.Errorf("counts do not add up: %+v", result)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sweep result not published")
	}
}

func TestSweepCancelledContext(t *testing.T) {
	cfg := config.Default()
	cfg.MarketConfig.MockMode = true

	registry := engine.NewRegistry(cfg.SignalConfig)
	eng := engine.New(cfg, market.NewMockClient(), predictor.NewAdapter(nil), registry, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(cfg.ScannerConfig, []string{"BTCUSDT"}, eng, nil, zerolog.Nop())
	// Must return promptly without panicking
	s.sweep(ctx)
}

func TestScannerStartStop(t *testing.T) {
	cfg := config.Default()
	cfg.MarketConfig.MockMode = true
	cfg.ScannerConfig = config.ScannerConfig{
		Enabled:      true,
		ScanInterval: 3600,
		WorkerCount:  1,
		Timeframe:    "1h",
	}

	registry := engine.NewRegistry(cfg.SignalConfig)
	eng := engine.New(cfg, market.NewMockClient(), predictor.NewAdapter(nil), registry, nil, zerolog.Nop())

	s := New(cfg.ScannerConfig, []string{"BTCUSDT"}, eng, nil, zerolog.Nop())
	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scanner did not stop")
	}
}
