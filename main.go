package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"signal-advisor/config"
	"signal-advisor/internal/api"
	"signal-advisor/internal/engine"
	"signal-advisor/internal/events"
	"signal-advisor/internal/market"
	"signal-advisor/internal/notification"
	"signal-advisor/internal/predictor"
	"signal-advisor/internal/scanner"
	"signal-advisor/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalLog := zerolog.New(os.Stderr)
		fatalLog.Fatal().Err(err).Msg("configuration invalid")
	}

	log := setupLogger(cfg.LoggingConfig)
	log.Info().Msg("signal advisor starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var provider market.DataProvider
	if cfg.MarketConfig.MockMode {
		log.Warn().Msg("mock market mode enabled, prices are simulated")
		provider = market.NewMockClient()
	} else {
		provider = market.NewClient(cfg.MarketConfig.BaseURL)
	}

	bus := events.NewBus(log)
	defer bus.Close()

	registry := engine.NewRegistry(cfg.SignalConfig)
	pred := predictor.NewAdapter(predictor.NewMomentum())
	eng := engine.New(cfg, provider, pred, registry, bus, log)

	// Persistence collaborators are optional; their failures never touch the
	// decision path.
	var mirror *store.Mirror
	if cfg.StoreConfig.RedisEnabled {
		mirror = store.NewMirror(ctx, cfg.StoreConfig.RedisAddr, cfg.StoreConfig.RedisDB, log)
		defer mirror.Close()
	}

	var repo *store.Repository
	if cfg.StoreConfig.PostgresURL != "" {
		repo, err = store.NewRepository(ctx, cfg.StoreConfig.PostgresURL, log)
		if err != nil {
			log.Warn().Err(err).Msg("postgres unavailable, history will not be persisted")
		} else {
			defer repo.Close()
		}
	}
	if mirror != nil || repo != nil {
		go persistSignals(ctx, bus, mirror, repo, log)
	}

	if cfg.NotificationConfig.Enabled && cfg.NotificationConfig.WebhookURL != "" {
		manager := notification.NewManager(log, notification.NewWebhookNotifier(cfg.NotificationConfig.WebhookURL))
		go notifySignals(ctx, bus, manager)
	}

	if cfg.ScannerConfig.Enabled {
		sc := scanner.New(cfg.ScannerConfig, cfg.MarketConfig.Pairs, eng, bus, log)
		sc.Start(ctx)
		defer sc.Stop()
	}

	server := api.NewServer(cfg.ServerConfig, eng, bus, log)
	serverErr := make(chan error, 1)
	if cfg.ServerConfig.Enabled {
		go func() {
			serverErr <- server.Start(ctx)
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		log.Error().Err(err).Msg("api server failed")
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown incomplete")
	}
	log.Info().Msg("signal advisor stopped")
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

// persistSignals mirrors signal lifecycle events into Redis and Postgres.
func persistSignals(ctx context.Context, bus *events.Bus, mirror *store.Mirror, repo *store.Repository, log zerolog.Logger) {
	ch := bus.Subscribe(events.SignalGenerated, events.SignalStatusChanged)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			sig, ok := event.Data.(engine.Signal)
			if !ok {
				continue
			}

			if mirror != nil {
				if sig.Status == engine.StatusActive {
					mirror.Put(ctx, sig)
				} else {
					mirror.Remove(ctx, sig.ID)
				}
			}
			if repo != nil {
				if err := repo.SaveSignal(ctx, sig); err != nil {
					log.Warn().Err(err).Str("signal_id", sig.ID).Msg("persist signal failed")
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// notifySignals forwards emitted signals to the outbound channels.
func notifySignals(ctx context.Context, bus *events.Bus, manager *notification.Manager) {
	ch := bus.Subscribe(events.SignalGenerated)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if sig, ok := event.Data.(engine.Signal); ok {
				manager.NotifySignal(ctx, sig)
			}
		case <-ctx.Done():
			return
		}
	}
}
