package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SpreadSentinel/internal/collector"
	"SpreadSentinel/internal/config"
	"SpreadSentinel/internal/notifier"
	"SpreadSentinel/internal/recorder"
	"SpreadSentinel/internal/scheduler"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	once := flag.Bool("once", false, "run one evaluation, print the result as JSON and exit")
	flag.Parse()

	if v := os.Getenv("CONFIG_PATH"); v != "" {
		*cfgPath = v
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg.Level())
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("config", *cfgPath).Msg("SpreadSentinel starting")

	// Init fetchers
	actual, err := newFetcher(cfg.Sources.Actual, cfg.Proxy)
	if err != nil {
		log.Fatal().Err(err).Msg("init actual source")
	}
	legA, err := newFetcher(cfg.Sources.LegA, cfg.Proxy)
	if err != nil {
		log.Fatal().Err(err).Msg("init leg A source")
	}
	legB, err := newFetcher(cfg.Sources.LegB, cfg.Proxy)
	if err != nil {
		log.Fatal().Err(err).Msg("init leg B source")
	}
	for _, f := range []collector.Fetcher{actual, legA, legB} {
		log.Info().Str("pair", f.Pair()).Str("source", f.Name()).Msg("data source")
	}
	col := collector.NewCollector(actual, legA, legB, cfg.Lookback())

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var sender notifier.Sender
	if cfg.NotifyEnabled() && !*once {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	} else if !*once {
		log.Warn().Msg("telegram credentials missing, notifications disabled")
	}

	sched := scheduler.NewScheduler(ctx, col, sender, rec, scheduler.AlertRule{
		Mode:          cfg.Alert.Mode,
		MinAbsPercent: cfg.Alert.MinAbsPercent,
	})

	if *once {
		res := sched.RunNow(scheduler.TriggerOnce)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatal().Err(err).Msg("encode result")
		}
		if !res.Success {
			rec.Close()
			os.Exit(1)
		}
		return
	}

	if err := sched.RegisterAll(cfg.Schedule.WatchCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing watch cycle now")
		go sched.RunNow(scheduler.TriggerStartup)
	}

	log.Info().Str("cron", cfg.Schedule.WatchCron).Msg("SpreadSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
}

func setupLogging(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func newFetcher(src config.Source, proxy string) (collector.Fetcher, error) {
	switch src.Provider {
	case "luno":
		return collector.NewLunoFetcher(src.Pair, src.Base, src.Counter, proxy), nil
	case "yahoo":
		return collector.NewYahooFetcher(src.Pair, src.Symbol, proxy), nil
	default:
		return nil, fmt.Errorf("unknown provider %q for %s", src.Provider, src.Pair)
	}
}
