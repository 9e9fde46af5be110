package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"StockSimDesk/internal/collector"
	"StockSimDesk/internal/config"
	"StockSimDesk/internal/gateway"
	"StockSimDesk/internal/logger"
	"StockSimDesk/internal/notifier"
	"StockSimDesk/internal/recorder"
	"StockSimDesk/internal/retry"
	"StockSimDesk/internal/scheduler"
	"StockSimDesk/internal/server"
	"StockSimDesk/internal/session"
	"StockSimDesk/internal/state"

	"github.com/rs/zerolog"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot := logger.New(logger.Config{})
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	log.Info().Msg("StockSimDesk starting...")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("load timezone")
	}

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	var stats server.CallStats
	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
			log.Warn().Err(err).Msg("create database directory")
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			stats = sr
			defer sr.Close()
		}
	}

	// Init gateway
	policy := retry.Policy{
		MaxRetries:   cfg.Retry.MaxRetries,
		InitialDelay: cfg.Retry.InitialDelay,
		Multiplier:   cfg.Retry.Multiplier,
	}
	endpoints := gateway.Endpoints{Trading: cfg.Backend.TradingURL, Finance: cfg.Backend.FinanceURL}
	if cfg.MockBackend() {
		endpoints = gateway.Endpoints{Trading: "http://mock.local/trading", Finance: "http://mock.local/finance"}
	}
	gw := gateway.New(endpoints, cfg.Backend.APIKey, cfg.Proxy, cfg.Backend.Timeout, policy, log).
		WithRateLimit(cfg.Backend.RateLimit, cfg.Backend.Burst)
	if cfg.MockBackend() {
		gw.Client = &http.Client{Transport: &collector.MockTransport{Latency: 300 * time.Millisecond}}
	}
	gw.Observer = callRecorder(rec, log)
	log.Info().Bool("mock", cfg.MockBackend()).Msg("backend gateway ready")

	// Init backend client and session
	client := collector.NewClient(gw, cfg.Backend.QuoteTTL, log)
	sessions := session.NewManager(client, log)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Session.Email != "" {
		if _, err := sessions.Login(ctx, cfg.Session.Email, cfg.Session.Password); err != nil {
			log.Warn().Err(err).Msg("auto-login failed, waiting for login through the API")
		}
	}

	col := collector.NewCollector(client, loc, log)

	// Init relay state
	st, err := state.NewManager(cfg.StateFile, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init relay state")
	}

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, policy, log)
		sender = tn
	} else {
		log.Info().Msg("telegram not configured, bot and relay disabled")
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, col, sessions, st, sender, rec, log)
	sched.TrendMonths = cfg.Finance.TrendMonths
	if err := sched.RegisterAll(scheduler.Schedule{
		NotificationPoll: config.CronSpec(cfg.Schedule.NotificationCron),
		DailyDigest:      config.CronSpec(cfg.Schedule.DailyCron),
		MonthlyReport:    config.CronSpec(cfg.Schedule.MonthlyCron),
	}); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("Telegram polling started")
	}

	// Start HTTP API
	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
		Collector:      col,
		Sessions:       sessions,
		TrendMonths:    cfg.Finance.TrendMonths,
		Stats:          stats,
		BaseContext:    ctx,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	log.Info().Msg("StockSimDesk is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	sched.Stop()
	log.Info().Msg("StockSimDesk stopped")
}

// callRecorder persists gateway call statistics without blocking the caller.
func callRecorder(rec recorder.Recorder, log zerolog.Logger) gateway.Observer {
	events := make(chan recorder.CallEvent, 256)
	go func() {
		for evt := range events {
			if err := rec.RecordCall(&evt); err != nil {
				log.Debug().Err(err).Str("action", evt.Action).Msg("record gateway call")
			}
		}
	}()
	return func(s gateway.CallStats) {
		select {
		case events <- recorder.CallEvent{
			RequestID: s.RequestID,
			Action:    s.Action,
			Target:    string(s.Target),
			Attempts:  s.Attempts,
			OK:        s.OK,
			Duration:  s.Duration,
			Err:       s.Err,
		}:
		default:
			log.Debug().Str("action", s.Action).Msg("call stats dropped")
		}
	}
}
