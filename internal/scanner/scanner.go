package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signal-advisor/config"
	"signal-advisor/internal/engine"
	"signal-advisor/internal/events"
)

// SweepResult summarizes one full pass over the configured pairs. Published
// on the event bus as SCAN_COMPLETE.
type SweepResult struct {
	Scanned    int           `json:"scanned"`
	Emitted    int           `json:"emitted"`
	Suppressed int           `json:"suppressed"`
	Errors     int           `json:"errors"`
	Duration   time.Duration `json:"duration"`
}

// Scanner sweeps the configured pairs through the engine on a fixed
// interval, fanning the work across a small worker pool.
type Scanner struct {
	cfg    config.ScannerConfig
	pairs  []string
	engine *engine.Engine
	bus    *events.Bus
	log    zerolog.Logger

	stop chan struct{}
	done chan struct{}
}

// New creates a scanner. The bus may be nil.
func New(cfg config.ScannerConfig, pairs []string, eng *engine.Engine, bus *events.Bus, log zerolog.Logger) *Scanner {
	return &Scanner{
		cfg:    cfg,
		pairs:  pairs,
		engine: eng,
		bus:    bus,
		log:    log.With().Str("component", "scanner").Logger(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled. The
// first sweep runs immediately.
func (s *Scanner) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(time.Duration(s.cfg.ScanInterval) * time.Second)
		defer ticker.Stop()

		s.log.Info().Int("pairs", len(s.pairs)).Str("timeframe", s.cfg.Timeframe).Msg("scanner started")
		s.sweep(ctx)

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for the current sweep to finish.
func (s *Scanner) Stop() {
	close(s.stop)
	<-s.done
}

// sweep runs every pair through the engine once.
func (s *Scanner) sweep(ctx context.Context) {
	start := time.Now()
	jobs := make(chan string)

	var (
		mu     sync.Mutex
		result SweepResult
		wg     sync.WaitGroup
	)

	workers := s.cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				outcome, err := s.engine.Generate(ctx, symbol, s.cfg.Timeframe)

				mu.Lock()
				result.Scanned++
				switch {
				case err != nil:
					result.Errors++
				case outcome.Emitted():
					result.Emitted++
				default:
					result.Suppressed++
				}
				mu.Unlock()

				if err != nil {
					s.log.Warn().Err(err).Str("symbol", symbol).Msg("scan cycle failed")
				}
			}
		}()
	}

	for _, symbol := range s.pairs {
		select {
		case jobs <- symbol:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)
	wg.Wait()

	result.Duration = time.Since(start)
	s.log.Info().
		Int("scanned", result.Scanned).
		Int("emitted", result.Emitted).
		Int("errors", result.Errors).
		Dur("duration", result.Duration).
		Msg("sweep complete")

	if s.bus != nil {
		s.bus.Publish(events.ScanComplete, result)
	}
}
