package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sources.Actual.Provider != "luno" || cfg.Sources.LegA.Symbol != "BTC-USD" || cfg.Sources.LegB.Symbol != "USDMYR=X" {
		t.Errorf("unexpected default sources %+v", cfg.Sources)
	}
	if cfg.LookbackHours != 24 || cfg.Alert.Mode != "unusual" || cfg.LogLevel != "info" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if cfg.NotifyEnabled() {
		t.Error("notifications should be disabled without credentials")
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
sources:
  leg_b:
    pair: USD/SGD
    provider: yahoo
    symbol: USDSGD=X
lookback_hours: 6
alert:
  mode: always
  min_abs_percent: 0.5
telegram:
  bot_token: file-token
  chat_id: "42"
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("WATCH_CRON", "0 * * * * *")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sources.LegB.Pair != "USD/SGD" || cfg.LookbackHours != 6 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Telegram.BotToken != "env-token" || cfg.Schedule.WatchCron != "0 * * * * *" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.Alert.MinAbsPercent != 0.5 || !cfg.NotifyEnabled() {
		t.Errorf("unexpected alert config %+v", cfg.Alert)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "sources: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Sources.LegA.Provider = "binance" }},
		{"yahoo without symbol", func(c *Config) { c.Sources.LegB.Symbol = "" }},
		{"luno without counter", func(c *Config) { c.Sources.Actual.Counter = "" }},
		{"duplicate pair", func(c *Config) { c.Sources.LegB.Pair = c.Sources.LegA.Pair }},
		{"bad cron", func(c *Config) { c.Schedule.WatchCron = "every five minutes" }},
		{"bad alert mode", func(c *Config) { c.Alert.Mode = "sometimes" }},
		{"negative threshold", func(c *Config) { c.Alert.MinAbsPercent = -1 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"negative lookback", func(c *Config) { c.LookbackHours = -2 }},
	}
	for _, tt := range tests {
		cfg := &Config{}
		cfg.applyDefaults()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" Warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		cfg := &Config{}
		cfg.applyDefaults()
		cfg.LogLevel = tt.in
		if got := cfg.Level(); got != tt.want {
			t.Errorf("Level(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if tt.in != "" {
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate with log_level %q: %v", tt.in, err)
			}
		}
	}
}
