package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Source describes where one series is fetched from.
type Source struct {
	Pair     string `yaml:"pair"`
	Provider string `yaml:"provider"` // "luno" or "yahoo"
	Base     string `yaml:"base"`
	Counter  string `yaml:"counter"`
	Symbol   string `yaml:"symbol"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Sources struct {
		Actual Source `yaml:"actual"`
		LegA   Source `yaml:"leg_a"`
		LegB   Source `yaml:"leg_b"`
	} `yaml:"sources"`
	LookbackHours int `yaml:"lookback_hours"`
	Schedule      struct {
		WatchCron string `yaml:"watch_cron"`
	} `yaml:"schedule"`
	Alert struct {
		Mode          string  `yaml:"mode"` // "always" or "unusual"
		MinAbsPercent float64 `yaml:"min_abs_percent"`
	} `yaml:"alert"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy    string `yaml:"proxy"`
	LogLevel string `yaml:"log_level"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("WATCH_CRON"); v != "" {
		cfg.Schedule.WatchCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOOKBACK_HOURS"); v != "" {
		var hours int
		if _, err := fmt.Sscanf(v, "%d", &hours); err == nil {
			cfg.LookbackHours = hours
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Sources.Actual.Pair == "" {
		c.Sources.Actual = Source{Pair: "BTC/MYR", Provider: "luno", Base: "XBT", Counter: "MYR"}
	}
	if c.Sources.LegA.Pair == "" {
		c.Sources.LegA = Source{Pair: "BTC/USD", Provider: "yahoo", Symbol: "BTC-USD"}
	}
	if c.Sources.LegB.Pair == "" {
		c.Sources.LegB = Source{Pair: "USD/MYR", Provider: "yahoo", Symbol: "USDMYR=X"}
	}
	if c.LookbackHours == 0 {
		c.LookbackHours = 24
	}
	if c.Schedule.WatchCron == "" {
		c.Schedule.WatchCron = "0 */5 * * * *"
	}
	if c.Alert.Mode == "" {
		c.Alert.Mode = "unusual"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Lookback returns the fetch window.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackHours) * time.Hour
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	for name, s := range map[string]Source{
		"sources.actual": c.Sources.Actual,
		"sources.leg_a":  c.Sources.LegA,
		"sources.leg_b":  c.Sources.LegB,
	} {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	pairs := map[string]bool{}
	for _, p := range []string{c.Sources.Actual.Pair, c.Sources.LegA.Pair, c.Sources.LegB.Pair} {
		if pairs[p] {
			return fmt.Errorf("sources: pair %q configured twice", p)
		}
		pairs[p] = true
	}
	if c.LookbackHours <= 0 {
		return fmt.Errorf("lookback_hours must be positive")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.WatchCron); err != nil {
		return fmt.Errorf("schedule.watch_cron: %w", err)
	}
	switch c.Alert.Mode {
	case "always", "unusual":
	default:
		return fmt.Errorf("alert.mode must be \"always\" or \"unusual\", got %q", c.Alert.Mode)
	}
	if c.Alert.MinAbsPercent < 0 {
		return fmt.Errorf("alert.min_abs_percent cannot be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}

// Level returns the zerolog level for log_level. Case is ignored; an unknown
// value falls back to info.
func (c *Config) Level() zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NotifyEnabled reports whether Telegram credentials are present.
func (c *Config) NotifyEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func (s Source) validate() error {
	if s.Pair == "" {
		return fmt.Errorf("pair is required")
	}
	switch s.Provider {
	case "luno":
		if s.Base == "" || s.Counter == "" {
			return fmt.Errorf("luno source needs base and counter")
		}
	case "yahoo":
		if s.Symbol == "" {
			return fmt.Errorf("yahoo source needs symbol")
		}
	default:
		return fmt.Errorf("unknown provider %q", s.Provider)
	}
	return nil
}
