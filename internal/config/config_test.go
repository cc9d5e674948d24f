package config

import (
	"os"
	"testing"
	"time"
)

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	os.Setenv("SYMBOLS", "btcusdt, ethusdt")
	os.Setenv("MIN_CONFIDENCE", "0.8")
	os.Setenv("SIGNAL_COOLDOWN", "120")
	os.Setenv("ENABLE_WYCKOFF", "false")
	os.Setenv("WS_MAX_RETRIES", "-1")
	os.Setenv("LOG_FORMAT", "text")
	defer func() {
		for _, k := range []string{"SYMBOLS", "MIN_CONFIDENCE", "SIGNAL_COOLDOWN", "ENABLE_WYCKOFF", "WS_MAX_RETRIES", "LOG_FORMAT"} {
			os.Unsetenv(k)
		}
	}()

	applyEnvOverrides(cfg)

	if got, want := cfg.Symbols, []string{"BTCUSDT", "ETHUSDT"}; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Symbols = %v, want %v", got, want)
	}
	if cfg.Fuser.MinConfidence != 0.8 {
		t.Errorf("MinConfidence = %v, want 0.8", cfg.Fuser.MinConfidence)
	}
	if cfg.Fuser.SignalCooldown != 120*time.Second {
		t.Errorf("SignalCooldown = %v, want 120s", cfg.Fuser.SignalCooldown)
	}
	if cfg.Fuser.EnableWyckoff {
		t.Errorf("EnableWyckoff = true, want false")
	}
	if cfg.Stream.MaxRetries != -1 {
		t.Errorf("MaxRetries = %v, want -1", cfg.Stream.MaxRetries)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
}

func TestApplyEnvOverridesLeavesDefaultsWhenUnset(t *testing.T) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Fuser.MinConfidence != 0.65 {
		t.Errorf("MinConfidence = %v, want default 0.65", cfg.Fuser.MinConfidence)
	}
	if len(cfg.Symbols) != 1 || cfg.Symbols[0] != "BTCUSDT" {
		t.Errorf("Symbols = %v, want default [BTCUSDT]", cfg.Symbols)
	}
}

func TestStreamKeysExpandsCrossProduct(t *testing.T) {
	cfg := &Config{Symbols: []string{"BTCUSDT", "ETHUSDT"}, Timeframes: []string{"1h", "4h"}}
	keys := cfg.StreamKeys()
	if len(keys) != 4 {
		t.Fatalf("len(keys) = %d, want 4", len(keys))
	}
}

func TestGenerateSampleConfig(t *testing.T) {
	out, err := GenerateSampleConfig()
	if err != nil {
		t.Fatalf("GenerateSampleConfig() error = %v", err)
	}
	if out == "" {
		t.Fatal("GenerateSampleConfig() returned empty string")
	}
}
