package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsUnorderedThresholds(t *testing.T) {
	cfg := Default()
	cfg.SignalConfig.WeakSignalThreshold = 0.30 // above strong

	if err := cfg.Validate(); err == nil {
		t.Error("should reject weak threshold above strong threshold")
	}
}

func TestValidateRejectsNegativeCooldown(t *testing.T) {
	cfg := Default()
	cfg.SignalConfig.SignalCooldownMinutes = -5

	if err := cfg.Validate(); err == nil {
		t.Error("should reject negative cooldown")
	}
}

func TestValidateRejectsConfluenceWithoutCount(t *testing.T) {
	cfg := Default()
	cfg.SignalConfig.EnableConfluence = true
	cfg.SignalConfig.MinConfluenceCount = 0

	if err := cfg.Validate(); err == nil {
		t.Error("should reject confluence enabled with zero count")
	}
}

func TestValidateRequires1hLevelRow(t *testing.T) {
	cfg := Default()
	delete(cfg.RiskConfig.Levels, "1h")

	if err := cfg.Validate(); err == nil {
		t.Error("should require the 1h fallback row")
	}
}

func TestValidateRejectsZeroTradeLevels(t *testing.T) {
	cfg := Default()
	cfg.RiskConfig.Levels["5m"] = TradeLevels{StopLossPct: 0, TakeProfitPct: 0.01}

	if err := cfg.Validate(); err == nil {
		t.Error("should reject non-positive stop loss percentage")
	}
}

func TestCooldownDuration(t *testing.T) {
	s := SignalConfig{SignalCooldownMinutes: 15}
	if s.CooldownDuration() != 15*time.Minute {
		t.Errorf("expected 15m, got %v", s.CooldownDuration())
	}
}

func TestZeroCooldownDisablesGuard(t *testing.T) {
	cfg := Default()
	cfg.SignalConfig.SignalCooldownMinutes = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("zero cooldown is a valid way to disable the guard: %v", err)
	}
}
