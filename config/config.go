package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the top-level application configuration. It is loaded once at
// startup, validated, and treated as read-only for the process lifetime.
type Config struct {
	MarketConfig       MarketConfig       `json:"market"`
	SignalConfig       SignalConfig       `json:"signal"`
	RiskConfig         RiskConfig         `json:"risk"`
	ScannerConfig      ScannerConfig      `json:"scanner"`
	ServerConfig       ServerConfig       `json:"server"`
	NotificationConfig NotificationConfig `json:"notification"`
	StoreConfig        StoreConfig        `json:"store"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// MarketConfig holds market data source configuration
type MarketConfig struct {
	BaseURL      string   `json:"base_url"`
	MockMode     bool     `json:"mock_mode"` // Use simulated data when the exchange API is unavailable
	Pairs        []string `json:"pairs"`     // Instruments the scanner sweeps
	HistoryLimit int      `json:"history_limit"`
}

// SignalConfig holds the decision-engine thresholds and rate limits
type SignalConfig struct {
	MinConfidence         float64 `json:"min_confidence"`          // Final emission floor after tier scaling
	SignalCooldownMinutes int     `json:"signal_cooldown_minutes"` // 0 disables the cooldown guard
	MaxSignalsPerHour     int     `json:"max_signals_per_hour"`    // 0 disables the rolling-hour cap
	EnableConfluence      bool    `json:"enable_confluence"`
	MinConfluenceCount    int     `json:"min_confluence_count"`
	StrongSignalThreshold float64 `json:"strong_signal_threshold"`
	MediumSignalThreshold float64 `json:"medium_signal_threshold"`
	WeakSignalThreshold   float64 `json:"weak_signal_threshold"`
}

// TradeLevels is one row of the per-timeframe stop-loss/take-profit table,
// expressed as fractions of entry price (0.012 = 1.2%).
type TradeLevels struct {
	StopLossPct   float64 `json:"stop_loss_pct"`
	TakeProfitPct float64 `json:"take_profit_pct"`
}

// RiskConfig holds trade level configuration
type RiskConfig struct {
	Levels       map[string]TradeLevels `json:"levels"` // Keyed by timeframe string
	UseATRWiden  bool                   `json:"use_atr_widen"`
	ATRMultiple  float64                `json:"atr_multiple"`
}

// ScannerConfig controls the periodic all-pairs sweep
type ScannerConfig struct {
	Enabled      bool   `json:"enabled"`
	ScanInterval int    `json:"scan_interval"` // Seconds between sweeps
	WorkerCount  int    `json:"worker_count"`
	Timeframe    string `json:"timeframe"`
}

// ServerConfig holds the HTTP API configuration
type ServerConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// NotificationConfig holds outbound notification settings
type NotificationConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

// StoreConfig holds the optional persistence collaborators
type StoreConfig struct {
	RedisEnabled bool   `json:"redis_enabled"`
	RedisAddr    string `json:"redis_addr"`
	RedisDB      int    `json:"redis_db"`
	PostgresURL  string `json:"postgres_url"` // Empty disables the history repository
}

// LoggingConfig controls zerolog output
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Pretty bool   `json:"pretty"` // Console writer instead of JSON
}

// CooldownDuration returns the configured cooldown as a duration.
func (s SignalConfig) CooldownDuration() time.Duration {
	return time.Duration(s.SignalCooldownMinutes) * time.Minute
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		MarketConfig: MarketConfig{
			BaseURL:      "https://api.binance.com",
			MockMode:     false,
			Pairs:        []string{"BTCUSDT", "ETHUSDT"},
			HistoryLimit: 500,
		},
		SignalConfig: SignalConfig{
			MinConfidence:         0.05,
			SignalCooldownMinutes: 1,
			MaxSignalsPerHour:     50,
			EnableConfluence:      true,
			MinConfluenceCount:    2,
			StrongSignalThreshold: 0.25,
			MediumSignalThreshold: 0.15,
			WeakSignalThreshold:   0.08,
		},
		RiskConfig: RiskConfig{
			Levels: map[string]TradeLevels{
				"1m":  {StopLossPct: 0.003, TakeProfitPct: 0.005},
				"5m":  {StopLossPct: 0.005, TakeProfitPct: 0.008},
				"15m": {StopLossPct: 0.008, TakeProfitPct: 0.012},
				"30m": {StopLossPct: 0.010, TakeProfitPct: 0.015},
				"1h":  {StopLossPct: 0.012, TakeProfitPct: 0.018},
				"4h":  {StopLossPct: 0.020, TakeProfitPct: 0.030},
				"1d":  {StopLossPct: 0.030, TakeProfitPct: 0.050},
			},
			UseATRWiden: false,
			ATRMultiple: 2.0,
		},
		ScannerConfig: ScannerConfig{
			Enabled:      false,
			ScanInterval: 60,
			WorkerCount:  4,
			Timeframe:    "1h",
		},
		ServerConfig: ServerConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
		},
		NotificationConfig: NotificationConfig{
			Enabled: false,
		},
		StoreConfig: StoreConfig{
			RedisEnabled: false,
			RedisAddr:    "localhost:6379",
		},
		LoggingConfig: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given file (optional), applies environment
// overrides and validates the result. Validation failures are fatal by design:
// a misconfigured engine must not run a single decision cycle.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARKET_BASE_URL"); v != "" {
		cfg.MarketConfig.BaseURL = v
	}
	if v := os.Getenv("MARKET_MOCK_MODE"); v != "" {
		cfg.MarketConfig.MockMode = v == "true" || v == "1"
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.ServerConfig.Port = port
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.StoreConfig.RedisAddr = v
		cfg.StoreConfig.RedisEnabled = true
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.StoreConfig.PostgresURL = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.NotificationConfig.WebhookURL = v
		cfg.NotificationConfig.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LoggingConfig.Level = v
	}
}

// Validate checks option ranges and cross-option consistency.
func (c *Config) Validate() error {
	s := c.SignalConfig

	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		return fmt.Errorf("invalid config: min_confidence %.2f outside [0,1]", s.MinConfidence)
	}
	if s.SignalCooldownMinutes < 0 {
		return fmt.Errorf("invalid config: signal_cooldown_minutes %d is negative", s.SignalCooldownMinutes)
	}
	if s.MaxSignalsPerHour < 0 {
		return fmt.Errorf("invalid config: max_signals_per_hour %d is negative", s.MaxSignalsPerHour)
	}
	if s.EnableConfluence && s.MinConfluenceCount < 1 {
		return fmt.Errorf("invalid config: confluence enabled but min_confluence_count %d < 1", s.MinConfluenceCount)
	}
	for name, v := range map[string]float64{
		"strong_signal_threshold": s.StrongSignalThreshold,
		"medium_signal_threshold": s.MediumSignalThreshold,
		"weak_signal_threshold":   s.WeakSignalThreshold,
	} {
		if v <= 0 || v >= 1 {
			return fmt.Errorf("invalid config: %s %.3f outside (0,1)", name, v)
		}
	}
	// Tiers must be strictly ordered or tier classification is ambiguous
	if !(s.StrongSignalThreshold > s.MediumSignalThreshold && s.MediumSignalThreshold > s.WeakSignalThreshold) {
		return fmt.Errorf("invalid config: thresholds must satisfy strong > medium > weak (%.3f, %.3f, %.3f)",
			s.StrongSignalThreshold, s.MediumSignalThreshold, s.WeakSignalThreshold)
	}

	for tf, lv := range c.RiskConfig.Levels {
		if lv.StopLossPct <= 0 || lv.TakeProfitPct <= 0 {
			return fmt.Errorf("invalid config: trade levels for %s must be positive", tf)
		}
		if lv.StopLossPct >= 0.5 || lv.TakeProfitPct >= 0.5 {
			return fmt.Errorf("invalid config: trade levels for %s exceed 50%%", tf)
		}
	}
	if len(c.RiskConfig.Levels) == 0 {
		return fmt.Errorf("invalid config: trade level table is empty")
	}
	if _, ok := c.RiskConfig.Levels["1h"]; !ok {
		return fmt.Errorf("invalid config: trade level table missing the 1h fallback row")
	}

	if c.ScannerConfig.Enabled {
		if c.ScannerConfig.ScanInterval <= 0 {
			return fmt.Errorf("invalid config: scan_interval must be positive")
		}
		if c.ScannerConfig.WorkerCount <= 0 {
			return fmt.Errorf("invalid config: worker_count must be positive")
		}
	}

	if c.ServerConfig.Enabled && (c.ServerConfig.Port <= 0 || c.ServerConfig.Port > 65535) {
		return fmt.Errorf("invalid config: server port %d out of range", c.ServerConfig.Port)
	}

	return nil
}
